package main

import (
	"context"
	"log/slog"
	"time"

	jwttoken "docgov/internal/jwt_token"
	policymodels "docgov/internal/policy/models"
	policystore "docgov/internal/policy/store"
	"docgov/internal/signature/keystore"
	id "docgov/pkg/domain"
)

// devSigningIntent is the signing-intent passphrase for seeded signers.
const devSigningIntent = "dev-signing-intent"

// seedDevActors provisions one actor per capability for the in-memory
// wiring, with signing keys for the roles that sign. The logged tokens let
// a developer exercise the full lifecycle immediately; nothing here runs
// when Postgres is configured.
func seedDevActors(
	ctx context.Context,
	log *slog.Logger,
	grants *policystore.InMemoryGrantStore,
	keys *keystore.InMemoryKeyStore,
	jwtService *jwttoken.JWTService,
) error {
	roles := []struct {
		capability policymodels.Capability
		signs      bool
	}{
		{policymodels.CapabilityAuthor, false},
		{policymodels.CapabilityReviewer, false},
		{policymodels.CapabilityApprover, true},
		{policymodels.CapabilityQualityManager, true},
	}

	validFrom := time.Now().Add(-time.Minute)
	for _, role := range roles {
		actorID := id.NewActorID()
		if err := grants.Add(ctx, policymodels.Grant{
			ActorID:    actorID,
			Capability: role.capability,
			ValidFrom:  validFrom,
		}); err != nil {
			return err
		}
		if role.signs {
			if _, err := keys.Enroll(ctx, actorID, devSigningIntent, 365*24*time.Hour); err != nil {
				return err
			}
		}

		token, err := jwtService.GenerateAccessToken(actorID, "dev-seed", 24*time.Hour)
		if err != nil {
			return err
		}
		log.Info("seeded dev actor",
			"capability", string(role.capability),
			"actor_id", actorID.String(),
			"signing_intent", signingIntentFor(role.signs),
			"token", token,
		)
	}
	return nil
}

func signingIntentFor(signs bool) string {
	if !signs {
		return ""
	}
	return devSigningIntent
}
