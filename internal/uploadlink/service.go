// Package uploadlink issues short-lived, secret-protected links a client uses
// to upload documents without an account. A link is a signed token naming the
// client plus a one-time share code; the code is stored hashed, so a leaked
// database cannot mint working links.
package uploadlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taxtrail/internal/audit"
	clientmodels "taxtrail/internal/client/models"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/secrets"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/requestcontext"
)

// DefaultTTL is how long an issued link stays valid unless the caller asks
// for less.
const DefaultTTL = 7 * 24 * time.Hour

// ClientStore is the slice of client persistence needed for ownership checks.
type ClientStore interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*clientmodels.Client, error)
}

type linkClaims struct {
	LinkID   string `json:"link_id"`
	ClientID string `json:"client_id"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

const purposeUpload = "upload"

// Link is handed to the accountant to forward to the client. Secret is shown
// exactly once.
type Link struct {
	Token     string    `json:"token"`
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service mints and redeems upload links.
type Service struct {
	store      Store
	clients    ClientStore
	signingKey []byte
	issuer     string
	auditor    *audit.Publisher
	logger     *slog.Logger
}

func New(store Store, clients ClientStore, signingKey, issuer string, auditor *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		clients:    clients,
		signingKey: []byte(signingKey),
		issuer:     issuer,
		auditor:    auditor,
		logger:     logger,
	}
}

// Issue creates an upload link for a client owned by the accountant.
func (s *Service) Issue(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, ttl time.Duration) (*Link, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	if !client.OwnedBy(accountantID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	if ttl <= 0 || ttl > DefaultTTL {
		ttl = DefaultTTL
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate link secret")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash link secret")
	}

	now := requestcontext.Now(ctx)
	linkID := uuid.New()
	record := &Record{
		LinkID:     linkID,
		ClientID:   clientID,
		SecretHash: hash,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store upload link")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, linkClaims{
		LinkID:   linkID.String(),
		ClientID: clientID.String(),
		Purpose:  purposeUpload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign upload link")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			AccountantID: accountantID,
			ClientID:     clientID,
			Action:       audit.EventUploadLinkIssued,
			Detail:       fmt.Sprintf("expires_at=%s", record.ExpiresAt.Format(time.RFC3339)),
			RequestID:    requestcontext.RequestID(ctx),
			Timestamp:    now,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "upload link issued",
		"client_id", clientID,
		"expires_at", record.ExpiresAt,
	)
	return &Link{Token: signed, Secret: secret, ExpiresAt: record.ExpiresAt}, nil
}

// Redeem validates a token plus share code and returns the client the bearer
// may upload for. Token signature, expiry, stored record, and secret hash
// must all check out.
func (s *Service) Redeem(ctx context.Context, token, secret string) (id.ClientID, error) {
	parsed, err := jwt.ParseWithClaims(token, &linkClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }))
	if err != nil || !parsed.Valid {
		return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid upload link")
	}
	claims, ok := parsed.Claims.(*linkClaims)
	if !ok || claims.Purpose != purposeUpload {
		return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid upload link")
	}
	linkID, err := uuid.Parse(claims.LinkID)
	if err != nil {
		return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid upload link")
	}

	record, err := s.store.Find(ctx, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "upload link has been revoked")
		}
		return id.ClientID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load upload link")
	}
	if requestcontext.Now(ctx).After(record.ExpiresAt) {
		return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "upload link has expired")
	}
	if err := secrets.Verify(secret, record.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return id.ClientID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid share code")
		}
		return id.ClientID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify share code")
	}
	return record.ClientID, nil
}

// Revoke deletes a link before its expiry.
func (s *Service) Revoke(ctx context.Context, accountantID id.AccountantID, linkID uuid.UUID) error {
	record, err := s.store.Find(ctx, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "upload link not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load upload link")
	}
	client, err := s.clients.FindByID(ctx, record.ClientID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	if !client.OwnedBy(accountantID) {
		return dErrors.New(dErrors.CodeNotFound, "upload link not found")
	}
	if err := s.store.Delete(ctx, linkID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete upload link")
	}
	return nil
}
