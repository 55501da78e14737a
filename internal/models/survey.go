package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Survey stage progression. Stage 1 is the short intake questionnaire
// that earns a coupon; stage 2 is the extended questionnaire that
// qualifies the respondent for the raffle.
const (
	SurveyStageOne = 1
	SurveyStageTwo = 2
)

// Survey records one visitor questionnaire. One survey per device.
type Survey struct {
	BaseModel
	DeviceID       string          `gorm:"uniqueIndex" json:"device_id"`
	Region         string          `json:"region"`
	AgeGroup       string          `json:"age_group"`
	Gender         string          `json:"gender"`
	StageCompleted int             `json:"stage_completed"`
	Stage1Answers  json.RawMessage `gorm:"type:jsonb" json:"stage1_answers,omitempty"`
	Stage2Answers  json.RawMessage `gorm:"type:jsonb" json:"stage2_answers,omitempty"`
}

// RaffleEntry is a prize-draw application tied to a stage-2 survey.
// Phone numbers are stored normalized and are unique system-wide.
type RaffleEntry struct {
	BaseModel
	SurveyID       uuid.UUID `gorm:"type:uuid;index" json:"survey_id"`
	Name           string    `json:"name"`
	Phone          string    `gorm:"uniqueIndex" json:"phone"`
	PrivacyConsent bool      `json:"privacy_consent"`
}

// DrawResult is an append-only record of one raffle draw run.
type DrawResult struct {
	BaseModel
	EligibleSurveyCount int             `json:"eligible_survey_count"`
	EntryCount          int             `json:"entry_count"`
	Winners             json.RawMessage `gorm:"type:jsonb" json:"winners"`
}
