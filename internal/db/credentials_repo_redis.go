package db

import (
	"context"
	"fmt"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

const (
	credentialsPrefix   string = "credentials"
	accessTokenField    string = "access_token"
	refreshTokenField   string = "refresh_token"
	encryptedFieldValue string = "1"
	encryptedField      string = "encrypted"
)

var errEncryptedWithoutKey = fmt.Errorf("the stored credentials are encrypted but no encryption key is configured")

// GetCredentials reads the credentials of a session, a missing record yields empty credentials
func (r RedisAdapter) GetCredentials(ctx context.Context, sessionID string) (models.Credentials, error) {
	raw, err := r.rdb.HGetAll(ctx, r.credentialsKey(sessionID)).Result()
	if err != nil {
		return models.Credentials{}, err
	}
	if len(raw) == 0 {
		return models.Credentials{}, nil
	}
	output := models.Credentials{AccessToken: raw[accessTokenField], RefreshToken: raw[refreshTokenField]}
	if raw[encryptedField] != encryptedFieldValue {
		return output, nil
	}
	if r.encryptor == nil {
		return models.Credentials{}, errEncryptedWithoutKey
	}
	output.AccessToken, err = r.decrypt(output.AccessToken)
	if err != nil {
		return models.Credentials{}, err
	}
	output.RefreshToken, err = r.decrypt(output.RefreshToken)
	if err != nil {
		return models.Credentials{}, err
	}
	return output, nil
}

// SetCredentials replaces both tokens of a session in a single HSET
func (r RedisAdapter) SetCredentials(ctx context.Context, sessionID string, credentials models.Credentials) error {
	key := r.credentialsKey(sessionID)
	accessToken, refreshToken := credentials.AccessToken, credentials.RefreshToken
	encrypted := ""
	if r.encryptor != nil {
		var err error
		accessToken, err = r.encrypt(accessToken)
		if err != nil {
			return err
		}
		refreshToken, err = r.encrypt(refreshToken)
		if err != nil {
			return err
		}
		encrypted = encryptedFieldValue
	}
	err := r.rdb.HSet(
		ctx,
		key,
		accessTokenField, accessToken,
		refreshTokenField, refreshToken,
		encryptedField, encrypted,
	).Err()
	if err != nil {
		return err
	}
	if r.credentialsTTL == 0 {
		return nil
	}
	return r.rdb.ExpireAt(ctx, key, time.Now().Add(r.credentialsTTL+expiresAtLeeway)).Err()
}

func (r RedisAdapter) RemoveCredentials(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, r.credentialsKey(sessionID)).Err()
}

func (r RedisAdapter) encrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return r.encryptor.Encrypt(value)
}

func (r RedisAdapter) decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return r.encryptor.Decrypt(value)
}

func (RedisAdapter) credentialsKey(sessionID string) string {
	return credentialsPrefix + ":" + sessionID
}
