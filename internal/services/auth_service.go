package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/auth"
	"github.com/chainraise/backend/internal/config"
)

var (
	ErrNonceUnknown     = errors.New("unknown or expired nonce")
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// AuthService issues login nonces and exchanges signed nonces for JWTs.
// Nonces are single use: consumption is an atomic GETDEL, so a replayed
// signature finds nothing to verify against.
type AuthService struct {
	redis *redis.Client
	cfg   *config.Config
	log   *zap.Logger
}

func NewAuthService(redisClient *redis.Client, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{redis: redisClient, cfg: cfg, log: log}
}

func nonceKey(address string) string {
	return "auth:nonce:" + strings.ToLower(address)
}

// IssueNonce creates (or re-reads) the login challenge for an address. An
// outstanding nonce is reused so a double-clicked login button does not
// invalidate the message the wallet is about to sign.
func (s *AuthService) IssueNonce(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	key := nonceKey(address)
	ok, err := s.redis.SetNX(ctx, key, nonce, s.cfg.NonceTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	if !ok {
		existing, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			return "", fmt.Errorf("failed to read existing nonce: %w", err)
		}
		nonce = existing
	}
	return auth.NonceMessage(nonce), nil
}

// Login consumes the nonce, verifies the personal_sign signature over the
// challenge message, and issues a JWT bound to the address.
func (s *AuthService) Login(ctx context.Context, address, signature string) (string, error) {
	nonce, err := s.redis.GetDel(ctx, nonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNonceUnknown
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}

	message := auth.NonceMessage(nonce)
	if err := auth.VerifyPersonalSign(address, message, signature); err != nil {
		s.log.Warn("login signature rejected", zap.String("address", address), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	tkn, err := auth.GenerateJWT(s.cfg.JWTSecret, address, s.cfg.JWTExpiration)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info("wallet login", zap.String("address", strings.ToLower(address)))
	return tkn, nil
}
