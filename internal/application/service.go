package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/directory/internal/domain"
	"vn.io.arda/directory/internal/token"
)

// Service is the directory gateway: it chains claim extraction, the
// service-account token exchange, the admin directory fetch and the
// visibility filter into the two public operations. It holds no state
// across requests.
type Service struct {
	idp IdPClient
}

// NewService creates the gateway service.
func NewService(idp IdPClient) *Service {
	return &Service{idp: idp}
}

// ListUsers returns the directory records visible to the caller.
//
// The identity argument comes from the signature-verifying guard. When a
// raw bearer token is supplied its claims are re-decoded and merged on
// top, and the caller's own IdP record is fetched as a best-effort third
// source. Only the token exchange and the directory fetch are fatal.
func (s *Service) ListUsers(ctx context.Context, id domain.Identity, rawToken string) ([]domain.DirectoryUser, error) {
	if rawToken != "" {
		if claims, ok := token.Decode(rawToken); ok {
			claims.MergeInto(&id)
		} else {
			log.Debug().Msg("bearer token claims undecodable, using guard identity as-is")
		}
	}

	serviceToken, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return nil, err
	}

	// Best-effort enrichment from the caller's own record. Keycloak
	// subjects are UUIDs; anything else is not worth a round trip.
	if _, parseErr := uuid.Parse(id.Subject); parseErr == nil {
		rec, err := s.idp.FetchUser(ctx, id.Subject, serviceToken)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("subject", id.Subject).Msg("caller record lookup failed, continuing with token identity")
		case rec != nil:
			mergeRecord(&id, rec)
		}
	}

	all, err := s.idp.ListUsers(ctx, serviceToken)
	if err != nil {
		return nil, err
	}

	visible := VisibleUsers(id, all)
	log.Debug().
		Int("directory", len(all)).
		Int("visible", len(visible)).
		Str("company", id.Company).
		Msg("directory listed")
	return visible, nil
}

// RegisterUser proxies a self-service signup into the IdP's admin
// user-creation endpoint. The gateway keeps no record of the new user;
// it becomes observable only through the IdP's own directory.
func (s *Service) RegisterUser(ctx context.Context, reg domain.RegistrationRequest) error {
	serviceToken, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return err
	}

	if err := s.idp.CreateUser(ctx, reg, serviceToken); err != nil {
		return err
	}

	log.Info().Str("email", reg.Email).Str("company", reg.Company).Msg("user registered")
	return nil
}

// mergeRecord folds the authoritative IdP record onto the identity without
// erasing fields the record does not carry.
func mergeRecord(id *domain.Identity, rec *domain.DirectoryUser) {
	if rec.Email != "" {
		id.Email = rec.Email
	}
	if rec.FirstName != "" {
		id.FirstName = rec.FirstName
	}
	if rec.LastName != "" {
		id.LastName = rec.LastName
	}
	if rec.Company != "" {
		id.Company = rec.Company
	}
}
