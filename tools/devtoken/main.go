// Command devtoken mints an HS256 host token for local use and can seed the
// host profile with it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/md-rashed-zaman/meethub/libs/auth"
)

func main() {
	var (
		secret   = flag.String("secret", getenv("JWT_SECRET", ""), "HS256 signing secret")
		subject  = flag.String("sub", getenv("HOST_ID", "dev-host"), "token subject (host id)")
		name     = flag.String("name", getenv("HOST_NAME", "Dev Host"), "host display name")
		email    = flag.String("email", getenv("HOST_EMAIL", "dev-host@meethub.local"), "host email")
		issuer   = flag.String("issuer", getenv("JWT_ISSUER", ""), "token issuer")
		ttl      = flag.Duration("ttl", 12*time.Hour, "token lifetime")
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "scheduling service base url")
		timezone = flag.String("setup-timezone", "", "when set, upsert the host profile with this IANA timezone")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}

	claims := auth.Claims{Name: *name, Email: *email}
	if *issuer != "" {
		claims.RegisteredClaims = jwt.RegisteredClaims{Issuer: *issuer}
	}
	token, err := auth.SignHS256(*secret, *subject, *ttl, claims)
	if err != nil {
		fatal(err.Error())
	}

	if *timezone != "" {
		if err := putProfile(*baseURL, token, *name, *email, *timezone); err != nil {
			fatal(err.Error())
		}
	}
	fmt.Println(token)
}

func putProfile(baseURL, token, name, email, timezone string) error {
	body, err := json.Marshal(map[string]string{"name": name, "email": email, "timezone": timezone})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, strings.TrimRight(baseURL, "/")+"/api/v1/host/profile", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile setup failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	fmt.Fprintf(os.Stderr, "profile ready for %s (%s)\n", name, timezone)
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
