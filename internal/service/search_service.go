package service

import (
	"html"
	"log"
	"strings"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

type SearchService interface {
	IndexMission(mission *model.Mission) error
	DeleteMission(id string) error
	SearchMissions(query string, status string, limit int64) ([]MissionHit, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"status", "waste_category", "is_help_request"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	_, err := s.client.Index("missions").UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update missions filterable attributes: %v", err)
	}

	sortableAttrs := []string{"created_at"}
	_, err = s.client.Index("missions").UpdateSortableAttributes(&sortableAttrs)
	if err != nil {
		log.Printf("Failed to update missions sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

// MissionHit is the searchable subset of a mission document.
type MissionHit struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	WasteCategory string  `json:"waste_category"`
	IsHelpRequest bool    `json:"is_help_request"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	CreatedAt     int64   `json:"created_at"`
}

func (s *searchService) cleanContentForIndex(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexMission(mission *model.Mission) error {
	doc := MissionHit{
		ID:            mission.ID.String(),
		Status:        string(mission.Status),
		IsHelpRequest: mission.IsHelpRequest,
		Lat:           mission.Lat,
		Lng:           mission.Lng,
		CreatedAt:     mission.CreatedAt.Unix(),
	}
	if mission.Title != nil {
		doc.Title = s.cleanContentForIndex(*mission.Title)
	}
	if mission.Description != nil {
		doc.Description = s.cleanContentForIndex(*mission.Description)
	}
	if mission.WasteCategory != nil {
		doc.WasteCategory = *mission.WasteCategory
	}

	task, err := s.client.Index("missions").AddDocuments([]MissionHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed mission %s, task id: %d", mission.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteMission(id string) error {
	_, err := s.client.Index("missions").DeleteDocument(id)
	return err
}

func (s *searchService) SearchMissions(query string, status string, limit int64) ([]MissionHit, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	req := &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"created_at:desc"},
	}
	if status != "" {
		req.Filter = "status = " + status
	}

	resp, err := s.client.Index("missions").Search(query, req)
	if err != nil {
		return nil, err
	}

	return decodeMissionHits(resp.Hits), nil
}

// decodeMissionHits converts raw search hits to documents, skipping any hit
// that does not decode.
func decodeMissionHits(raw meilisearch.Hits) []MissionHit {
	hits := make([]MissionHit, 0, len(raw))
	for _, h := range raw {
		var hit MissionHit
		if err := h.DecodeInto(&hit); err != nil {
			log.Printf("Failed to decode search hit: %v", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

func strPtr(s string) *string { return &s }
