package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/crypto"
)

// sealedStore - слой шифрования между Session и storage.AuthStorage.
// Токен запечатывается ключом из пароля и привязывается к адресу сервера и username.
type sealedStore struct {
	storage storage.AuthStorage
}

func binding(remoteURL, username string) string {
	return remoteURL + "|" + username
}

// save запечатывает токен свежей солью и сохраняет его
func (s *sealedStore) save(ctx context.Context, remoteURL string, creds Credentials, token string, expiresAt time.Time) error {
	salt, err := crypto.GenerateSaltBase64()
	if err != nil {
		return err
	}

	key, err := crypto.DeriveSessionKeyFromBase64Salt(creds.Password, creds.Username, salt)
	if err != nil {
		return fmt.Errorf("failed to derive session key: %w", err)
	}

	sealed, err := crypto.Seal([]byte(token), key, binding(remoteURL, creds.Username))
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}

	return s.storage.SaveAuth(ctx, &storage.AuthData{
		RemoteURL:   remoteURL,
		Username:    creds.Username,
		AccessToken: sealed,
		Salt:        salt,
		ExpiresAt:   expiresAt,
	})
}

// load возвращает сохранённый токен, если он принадлежит этому серверу и
// пользователю, ещё не истёк и открывается текущим паролем. Иначе storage.ErrAuthNotFound.
func (s *sealedStore) load(ctx context.Context, remoteURL string, creds Credentials, now time.Time) (string, time.Time, error) {
	data, err := s.storage.GetAuth(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	if !data.Valid(remoteURL, creds.Username, now) {
		return "", time.Time{}, storage.ErrAuthNotFound
	}

	key, err := crypto.DeriveSessionKeyFromBase64Salt(creds.Password, creds.Username, data.Salt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", storage.ErrAuthNotFound, err)
	}

	token, err := crypto.Open(data.AccessToken, key, binding(remoteURL, creds.Username))
	if errors.Is(err, crypto.ErrSealBroken) {
		// Пароль сменился или запись повреждена
		return "", time.Time{}, storage.ErrAuthNotFound
	}
	if err != nil {
		return "", time.Time{}, err
	}

	return string(token), data.ExpiresAt, nil
}

func (s *sealedStore) delete(ctx context.Context) error {
	err := s.storage.DeleteAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return nil
	}
	return err
}
