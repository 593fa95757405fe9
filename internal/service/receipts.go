package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mmynk/housemates/internal/auth"
	"github.com/mmynk/housemates/internal/receipts"
	"github.com/mmynk/housemates/internal/storage"
)

var errForeignReceipt = errors.New("receipt belongs to another household")

// ReceiptAuthorizer allows a receipt download only to a current member of
// the household that owns it.
func ReceiptAuthorizer(jwtManager *auth.JWTManager, users storage.UserStore) receipts.AuthorizeFunc {
	return func(r *http.Request, householdID string) error {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return err
		}
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return err
		}
		user, err := users.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user.HouseholdID != householdID {
			return errForeignReceipt
		}
		return nil
	}
}
