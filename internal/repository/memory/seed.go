package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vehiclerental/internal/domain"
)

// seedFile is the YAML layout accepted by LoadSeed.
type seedFile struct {
	Vehicles []struct {
		ID        string   `yaml:"id"`
		Name      string   `yaml:"name"`
		DailyRate float64  `yaml:"daily_rate"`
		Units     []string `yaml:"units"`
	} `yaml:"vehicles"`
	Users []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Verified bool   `yaml:"verified"`
	} `yaml:"users"`
}

// LoadSeed fills the store from a YAML fixture file.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now()
	for _, v := range seed.Vehicles {
		s.AddVehicle(&domain.Vehicle{ID: v.ID, Name: v.Name, DailyRate: v.DailyRate})
		for _, unitID := range v.Units {
			s.AddUnit(&domain.VehicleUnit{
				ID:        unitID,
				VehicleID: v.ID,
				Status:    domain.UnitStatusAvailable,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	for _, u := range seed.Users {
		status := domain.VerificationPending
		if u.Verified {
			status = domain.VerificationVerified
		}
		s.AddUser(&domain.UserDetails{
			UserID:             u.ID,
			Name:               u.Name,
			Email:              u.Email,
			KTPStatus:          status,
			SIMStatus:          status,
			VerificationStatus: status,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	return nil
}
