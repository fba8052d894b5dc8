package authenticator

import "net/http"

type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	BuildToken(userID, email string) (string, error)
}
