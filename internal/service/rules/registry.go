package rules

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/intinc/interact-engine/internal/repository"
)

// Entities a rule condition may reference. The set is closed: conditions
// naming anything else evaluate to false instead of probing arbitrary tables.
const (
	EntityParticipation     = "participation"
	EntityRecognition       = "recognition"
	EntityChallengeProgress = "challenge_progress"
	EntitySurveyResponse    = "survey_response"
	EntityUserPoints        = "user_points"
)

// KnownEntity reports whether conditions may reference the entity.
func KnownEntity(entity string) bool {
	switch entity {
	case EntityParticipation, EntityRecognition, EntityChallengeProgress,
		EntitySurveyResponse, EntityUserPoints:
		return true
	}
	return false
}

// fetchEntity loads one record of the given entity as a generic document. With
// a non-nil id the lookup is by primary key, otherwise it is the user's most
// recent record. Unknown entities and missing records return (nil, nil); the
// evaluator treats both as condition-not-satisfied.
func fetchEntity(s *repository.Store, entity string, id *string, userEmail string) (map[string]interface{}, error) {
	if id != nil {
		recordID, err := strconv.ParseUint(*id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s id %q: %w", entity, *id, err)
		}
		return fetchEntityByID(s, entity, uint(recordID))
	}
	return fetchEntityByUser(s, entity, userEmail)
}

func fetchEntityByID(s *repository.Store, entity string, id uint) (map[string]interface{}, error) {
	switch entity {
	case EntityParticipation:
		return toDoc(s.Engagement.GetParticipationByID(id))
	case EntityRecognition:
		return toDoc(s.Engagement.GetRecognitionByID(id))
	case EntityChallengeProgress:
		return toDoc(s.Engagement.GetChallengeProgressByID(id))
	case EntitySurveyResponse:
		return toDoc(s.Engagement.GetSurveyResponseByID(id))
	case EntityUserPoints:
		// Points rows are keyed by user, not by trigger id.
		return nil, nil
	}
	return nil, nil
}

func fetchEntityByUser(s *repository.Store, entity string, userEmail string) (map[string]interface{}, error) {
	switch entity {
	case EntityParticipation:
		return toDoc(s.Engagement.GetParticipationByUser(userEmail))
	case EntityRecognition:
		return toDoc(s.Engagement.GetRecognitionByUser(userEmail))
	case EntityChallengeProgress:
		return toDoc(s.Engagement.GetChallengeProgressByUser(userEmail))
	case EntitySurveyResponse:
		return toDoc(s.Engagement.GetSurveyResponseByUser(userEmail))
	case EntityUserPoints:
		return toDoc(s.Points.GetByEmail(userEmail))
	}
	return nil, nil
}

// toDoc flattens a model into the field map conditions are evaluated against.
// The JSON roundtrip makes condition field names match the API's json tags.
func toDoc[T any](record *T, err error) (map[string]interface{}, error) {
	if err != nil || record == nil {
		return nil, err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
