package auth

import (
	"fmt"

	"agrisite-api/internal/logger"

	"github.com/casbin/casbin/v2"
)

// SeedPolicies ensures every given policy and the role hierarchy exist. It checks each
// rule before adding it, so it is safe to run on every start.
func SeedPolicies(e casbin.IEnforcer, policies [][]string, log logger.Logger) error {
	log.Info("Seeding default authorization policies...")

	for _, p := range policies {
		rule := make([]interface{}, len(p))
		for i, v := range p {
			rule[i] = v
		}
		has, err := e.HasPolicy(rule...)
		if err != nil {
			return fmt.Errorf("failed to check policy %v: %w", p, err)
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(rule...); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}

	for _, link := range [][2]string{{RoleAdmin, RoleUser}, {RoleUser, RoleGuest}} {
		has, err := e.HasRoleForUser(link[0], link[1])
		if err != nil {
			return fmt.Errorf("failed to check role %s -> %s: %w", link[0], link[1], err)
		}
		if has {
			continue
		}
		if _, err := e.AddRoleForUser(link[0], link[1]); err != nil {
			return fmt.Errorf("failed to add role %s -> %s: %w", link[0], link[1], err)
		}
	}

	log.Info("Policy seeding complete.")
	return nil
}
