// Command tokengen mints an access token for an owner id, signed with the
// server's secret key. Sessions are issued out of band; this is the
// development way to get one.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/server/auth"
	"github.com/google/uuid"
)

func main() {
	fs := flag.NewFlagSet("tokengen", flag.ExitOnError)
	owner := fs.String("o", "", "owner id (a new uuid when empty)")
	secret := fs.String("s", os.Getenv("DOCANCHOR_SECRET_KEY"), "secret key")
	validity := fs.Duration("d", 24*time.Hour, "token validity")
	_ = fs.Parse(os.Args[1:])

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "secret key is required (-s or DOCANCHOR_SECRET_KEY)")
		os.Exit(2)
	}
	if *owner == "" {
		*owner = uuid.NewString()
	}

	token, err := auth.GenerateToken(*owner, []byte(*secret), *validity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "owner: %s\n", *owner)
	fmt.Println(token)
}
