package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type UserOperations struct{}

func (o *UserOperations) CreateUser(ctx context.Context, u *User) error {
	result, err := GetDB().ExecContext(ctx, InsertUser,
		u.EtsyUserID, u.Username, u.ShopID, u.AccessToken, u.RefreshToken, u.TokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return nil
}

func (o *UserOperations) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return o.scanUser(GetDB().QueryRowContext(ctx, GetUserByID, id))
}

func (o *UserOperations) GetUserByEtsyID(ctx context.Context, etsyUserID string) (*User, error) {
	return o.scanUser(GetDB().QueryRowContext(ctx, GetUserByEtsyID, etsyUserID))
}

func (o *UserOperations) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time, shopID string) error {
	_, err := GetDB().ExecContext(ctx, UpdateUserTokens, accessToken, refreshToken, expiresAt, shopID, id)
	if err != nil {
		return fmt.Errorf("failed to update user tokens: %w", err)
	}
	return nil
}

func (o *UserOperations) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var shopID, refreshToken sql.NullString
	err := row.Scan(&u.ID, &u.EtsyUserID, &u.Username, &shopID, &u.AccessToken,
		&refreshToken, &u.TokenExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.ShopID = shopID.String
	u.RefreshToken = refreshToken.String
	return u, nil
}
