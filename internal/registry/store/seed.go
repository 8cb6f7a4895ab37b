package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biohive/internal/registry/models"
	"biohive/pkg/platform/sentinel"
)

// SeedDefaults registers the initial clinic nodes. Existing nodes are left
// untouched, so seeding is safe to run on every startup.
func SeedDefaults(ctx context.Context, s Store) error {
	now := time.Now().UTC()
	defaults := []*models.Node{
		{NodeID: "clinic_1", Name: "Clinic Alpha", Latitude: 30.7333, Longitude: 76.7794},
		{NodeID: "clinic_2", Name: "Clinic Beta", Latitude: 30.7409, Longitude: 76.7869},
		{NodeID: "clinic_3", Name: "Clinic Gamma", Latitude: 30.7258, Longitude: 76.7711},
		{NodeID: "clinic_4", Name: "Clinic Delta", Latitude: 30.7462, Longitude: 76.7925},
		{NodeID: "clinic_5", Name: "Clinic Epsilon", Latitude: 30.7381, Longitude: 76.7652},
		{NodeID: "clinic_6", Name: "Clinic Zeta", Latitude: 30.7196, Longitude: 76.7893},
		{NodeID: "clinic_7", Name: "Clinic Eta", Latitude: 30.7527, Longitude: 76.7748},
		{NodeID: "clinic_8", Name: "Clinic Theta", Latitude: 30.7314, Longitude: 76.8012},
	}
	for _, node := range defaults {
		node.Status = models.NodeStatusActive
		node.CreatedAt = now
		if err := s.Create(ctx, node); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed node %s: %w", node.NodeID, err)
		}
	}
	return nil
}
