package handlers_test

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validAccountBody = `{
	"account_holder_name": "Jane Doe",
	"dob": "1990-05-17",
	"gender": "Female",
	"email": "jane@example.com",
	"phone": "0501234567",
	"address": "12 Harbour Road",
	"zip_code": "40001",
	"account_type": "Savings",
	"balance": 250.75,
	"services": "SMS Alerts, Debit Card",
	"marketing_opt_in": true,
	"agreed_to_terms": true
}`

const validUpdateBody = `{
	"account_holder_name": "Jane Q Doe",
	"dob": "1990-05-17",
	"gender": "female",
	"email": "jane.doe@example.com",
	"phone": "0507654321",
	"address": "14 Harbour Road",
	"zip_code": "40002",
	"account_type": "current",
	"balance": 99.5,
	"status": "inactive",
	"services": "Net Banking",
	"marketing_opt_in": false
}`

// small helper function which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}
