package service

import (
	"context"
	"sort"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/dto"
	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/internal/repository"
	"github.com/golang/geo/s2"
	"github.com/google/uuid"
)

const (
	earthRadiusM = 6371010.0

	// Positions older than this are considered offline and hidden from the map.
	locationStaleAfter = 5 * time.Minute
)

type LocationService interface {
	UpdateLocation(ctx context.Context, userID uuid.UUID, input dto.UpdateLocationInput) error
	NearbyUsers(ctx context.Context, userID uuid.UUID, lat, lng, radiusM float64) ([]dto.NearbyUserResponse, error)
}

type locationService struct {
	locationRepo repository.LocationRepository
	userRepo     repository.UserRepository
	feed         *ChangeFeed
	now          func() time.Time
}

func NewLocationService(locationRepo repository.LocationRepository, userRepo repository.UserRepository, feed *ChangeFeed) LocationService {
	return &locationService{
		locationRepo: locationRepo,
		userRepo:     userRepo,
		feed:         feed,
		now:          time.Now,
	}
}

func (s *locationService) UpdateLocation(ctx context.Context, userID uuid.UUID, input dto.UpdateLocationInput) error {
	loc := &model.UserLocation{
		UserID:     userID,
		Lat:        *input.Lat,
		Lng:        *input.Lng,
		IsCleaning: input.IsCleaning,
	}
	if err := s.locationRepo.Upsert(ctx, loc); err != nil {
		return err
	}
	s.feed.Publish(ctx, TableUserLocations)
	return nil
}

func (s *locationService) NearbyUsers(ctx context.Context, userID uuid.UUID, lat, lng, radiusM float64) ([]dto.NearbyUserResponse, error) {
	if radiusM <= 0 || radiusM > 50000 {
		radiusM = 2000
	}

	cutoff := s.now().Add(-locationStaleAfter)
	locations, err := s.locationRepo.ListOthers(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}

	origin := s2.LatLngFromDegrees(lat, lng)
	out := make([]dto.NearbyUserResponse, 0, len(locations))
	for _, loc := range locations {
		dist := distanceMeters(origin, s2.LatLngFromDegrees(loc.Lat, loc.Lng))
		if dist > radiusM {
			continue
		}

		entry := dto.NearbyUserResponse{
			UserID:     loc.UserID.String(),
			Lat:        loc.Lat,
			Lng:        loc.Lng,
			IsCleaning: loc.IsCleaning,
			DistanceM:  dist,
		}
		if profile, err := s.userRepo.FindProfile(ctx, loc.UserID); err == nil {
			entry.Username = profile.Username
			entry.AvatarURL = profile.AvatarURL
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	return out, nil
}

func distanceMeters(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * earthRadiusM
}
