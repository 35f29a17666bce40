// Command devtoken issues a signed bearer token so the API can be exercised
// locally, e.g.
//
//	devtoken -user 6f1c2a9e-7d3b-4f0a-9a51-0d8a3e5c1b11 -role ADMIN
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
)

func main() {
	userFlag := flag.String("user", "", "user id (uuid) to issue the token for")
	roleFlag := flag.String("role", string(db.RoleCitizen), "role claim: CITIZEN, ADMIN or STAFF")
	ttlFlag := flag.Duration("ttl", 0, "token lifetime (defaults to AUTH_TOKEN_TTL)")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.LoadAuth()
	if err != nil {
		fail(err)
	}

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		fail(fmt.Errorf("invalid -user %q: %w", *userFlag, err))
	}

	role := db.Role(strings.ToUpper(*roleFlag))
	switch role {
	case db.RoleCitizen, db.RoleAdmin, db.RoleStaff:
	default:
		fail(fmt.Errorf("invalid -role %q", *roleFlag))
	}

	ttl := cfg.TokenTTL
	if *ttlFlag > 0 {
		ttl = *ttlFlag
	}

	token, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.Issuer).
		Issue(auth.Identity{UserID: userID, Role: role}, ttl, time.Now())
	if err != nil {
		fail(err)
	}
	fmt.Println(token)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "devtoken:", err)
	os.Exit(1)
}
