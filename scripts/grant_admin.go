package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
)

// Operator utility to give an existing account the admin role
// Usage: go run scripts/grant_admin.go [-password <new password>] [-revoke] <email>
func main() {
	password := flag.String("password", "", "also reset the account password")
	revoke := flag.Bool("revoke", false, "set the role back to user")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: go run scripts/grant_admin.go [-password <new password>] [-revoke] <email>")
		os.Exit(1)
	}
	email := strings.ToLower(strings.TrimSpace(flag.Arg(0)))

	conf := config.New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := databases.NewClient(conf)
	if err != nil {
		fmt.Printf("Error creating client: %v\n", err)
		os.Exit(1)
	}
	if err := client.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to %s: %v\n", conf.DatabaseName, err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)
	users := databases.NewUserDatabase(databases.NewDatabase(conf, client))

	u, err := users.FindOne(ctx, bson.M{"user.email": email})
	if err != nil {
		fmt.Printf("No account for %s: %v\n", email, err)
		os.Exit(1)
	}

	role := models.RoleAdmin
	if *revoke {
		role = models.RoleUser
	}
	set := bson.M{"user.role": role, "user.updatedAt": time.Now()}
	if *password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			fmt.Printf("Error generating hash: %v\n", err)
			os.Exit(1)
		}
		set["user.password"] = string(hashedPassword)
	}
	if err := users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set}); err != nil {
		fmt.Printf("Error updating %s: %v\n", email, err)
		os.Exit(1)
	}

	fmt.Printf("%s (%s) now has role %q\n", u.Details.FullName(), email, role)
	if *password != "" {
		fmt.Println("Password was reset")
	}
	fmt.Println("Existing tokens keep their old role until the user signs in again")
}
