package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/models"
	"github.com/example/golmok/internal/utils"
)

// DefaultTierSizes partitions winners into ranks: one first prize,
// two second prizes, four third prizes.
var DefaultTierSizes = []int{1, 2, 4}

// prizeByRank maps a winner's rank to the prize amount in KRW.
var prizeByRank = map[int]int64{
	1: 20000,
	2: 10000,
	3: 5000,
}

// RaffleService captures prize-draw entries and runs the winner
// selection over the eligible pool.
type RaffleService struct {
	db         *gorm.DB
	minSurveys int
	minEntries int
	loc        *time.Location
}

// NewRaffleService constructs a RaffleService.
func NewRaffleService(db *gorm.DB, minSurveys, minEntries int, loc *time.Location) *RaffleService {
	return &RaffleService{db: db, minSurveys: minSurveys, minEntries: minEntries, loc: loc}
}

// SubmitEntry records a raffle application for a stage-2 survey.
// Phone numbers are normalized before the duplicate check so the same
// number cannot enter twice under different formatting.
func (s *RaffleService) SubmitEntry(ctx context.Context, surveyID uuid.UUID, name, phone string, consent bool) (*models.RaffleEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errInvalidInput("name is required")
	}
	if !consent {
		return nil, errInvalidInput("privacy consent is required")
	}

	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return nil, errInvalidInput("invalid phone number")
	}

	var survey models.Survey
	if err := s.db.WithContext(ctx).First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("survey not found")
		}
		return nil, errInternal(err)
	}
	if survey.StageCompleted < models.SurveyStageTwo {
		return nil, errPrecondition("survey has not completed the second stage")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RaffleEntry{}).
		Where("phone = ?", normalized).
		Count(&count).Error; err != nil {
		return nil, errInternal(err)
	}
	if count > 0 {
		return nil, errConflict("this phone number has already entered the raffle")
	}

	entry := models.RaffleEntry{
		SurveyID:       surveyID,
		Name:           name,
		Phone:          normalized,
		PrivacyConsent: consent,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		// The unique index backstops the pre-check under concurrency.
		if isDuplicateKey(err) {
			return nil, errConflict("this phone number has already entered the raffle")
		}
		return nil, errInternal(err)
	}

	return &entry, nil
}

// EligiblePool is the admin-facing view of who can win.
type EligiblePool struct {
	Entries             []models.RaffleEntry `json:"entries"`
	EligibleSurveyCount int64                `json:"eligible_survey_count"`
	EntryCount          int64                `json:"entry_count"`
}

// ListEligible returns entries whose referenced survey completed
// stage 2. Entries tied to surveys stuck at stage 1 exist (entry
// capture and stage completion come through different triggers) and
// are excluded here.
func (s *RaffleService) ListEligible(ctx context.Context) (*EligiblePool, error) {
	pool := &EligiblePool{}

	if err := s.db.WithContext(ctx).Model(&models.Survey{}).
		Where("stage_completed >= ?", models.SurveyStageTwo).
		Count(&pool.EligibleSurveyCount).Error; err != nil {
		return nil, errInternal(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.RaffleEntry{}).
		Joins("JOIN surveys ON surveys.id = raffle_entries.survey_id").
		Where("surveys.stage_completed >= ?", models.SurveyStageTwo).
		Order("raffle_entries.created_at asc").
		Find(&pool.Entries).Error; err != nil {
		return nil, errInternal(err)
	}

	pool.EntryCount = int64(len(pool.Entries))
	return pool, nil
}

// Winner is one selected entry tagged with its rank and prize.
type Winner struct {
	Rank      int       `json:"rank"`
	Prize     int64     `json:"prize"`
	EntryID   uuid.UUID `json:"entry_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Region    string    `json:"region"`
	EnteredAt time.Time `json:"entered_at"`
}

// DrawOutcome is the result of one draw run.
type DrawOutcome struct {
	DrawID              uuid.UUID `json:"draw_id"`
	DrawnAt             time.Time `json:"drawn_at"`
	EligibleSurveyCount int64     `json:"eligible_survey_count"`
	EntryCount          int64     `json:"entry_count"`
	Winners             []Winner  `json:"winners"`
}

// Draw shuffles the eligible pool and partitions the head into prize
// tiers. The Fisher–Yates shuffle makes every permutation equally
// likely, so slicing the shuffled head per tier is sampling without
// replacement. Each run is appended to draw_results for audit;
// repeated runs legitimately produce different winners.
func (s *RaffleService) Draw(ctx context.Context, tierSizes []int) (*DrawOutcome, error) {
	if len(tierSizes) == 0 {
		tierSizes = DefaultTierSizes
	}
	if len(tierSizes) > len(prizeByRank) {
		return nil, errInvalidInput(fmt.Sprintf("at most %d prize tiers are defined", len(prizeByRank)))
	}
	for _, size := range tierSizes {
		if size <= 0 {
			return nil, errInvalidInput("tier sizes must be positive")
		}
	}

	pool, err := s.ListEligible(ctx)
	if err != nil {
		return nil, err
	}

	if pool.EligibleSurveyCount < int64(s.minSurveys) || pool.EntryCount < int64(s.minEntries) {
		return nil, errPrecondition(fmt.Sprintf(
			"not enough participants: %d eligible surveys (need %d), %d entries (need %d)",
			pool.EligibleSurveyCount, s.minSurveys, pool.EntryCount, s.minEntries))
	}

	entries := pool.Entries
	for i := len(entries) - 1; i >= 1; i-- {
		j := rand.IntN(i + 1)
		entries[i], entries[j] = entries[j], entries[i]
	}

	total := 0
	for _, size := range tierSizes {
		total += size
	}
	if total > len(entries) {
		total = len(entries)
	}

	surveys, err := s.surveysByID(ctx, entries[:total])
	if err != nil {
		return nil, err
	}

	winners := make([]Winner, 0, total)
	index := 0
	for rank, size := range tierSizes {
		for n := 0; n < size && index < total; n++ {
			entry := entries[index]
			winner := Winner{
				Rank:      rank + 1,
				Prize:     prizeByRank[rank+1],
				EntryID:   entry.ID,
				Name:      entry.Name,
				Phone:     entry.Phone,
				EnteredAt: entry.CreatedAt,
			}
			if survey, ok := surveys[entry.SurveyID]; ok {
				winner.Region = survey.Region
			}
			winners = append(winners, winner)
			index++
		}
	}

	// The audit row keeps only a masked phone; the response carries
	// the full number so staff can contact winners.
	persisted := make([]Winner, len(winners))
	copy(persisted, winners)
	for i := range persisted {
		persisted[i].Phone = utils.MaskPhone(persisted[i].Phone)
	}
	payload, err := json.Marshal(persisted)
	if err != nil {
		return nil, errInternal(err)
	}

	result := models.DrawResult{
		EligibleSurveyCount: int(pool.EligibleSurveyCount),
		EntryCount:          int(pool.EntryCount),
		Winners:             payload,
	}
	if err := s.db.WithContext(ctx).Create(&result).Error; err != nil {
		return nil, errInternal(err)
	}

	return &DrawOutcome{
		DrawID:              result.ID,
		DrawnAt:             result.CreatedAt.In(s.loc),
		EligibleSurveyCount: pool.EligibleSurveyCount,
		EntryCount:          pool.EntryCount,
		Winners:             winners,
	}, nil
}

// ListDraws returns past draw results, newest first.
func (s *RaffleService) ListDraws(ctx context.Context) ([]models.DrawResult, error) {
	var results []models.DrawResult
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Find(&results).Error; err != nil {
		return nil, errInternal(err)
	}
	return results, nil
}

func (s *RaffleService) surveysByID(ctx context.Context, entries []models.RaffleEntry) (map[uuid.UUID]models.Survey, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.SurveyID)
	}

	var surveys []models.Survey
	if err := s.db.WithContext(ctx).Find(&surveys, "id IN ?", ids).Error; err != nil {
		return nil, errInternal(err)
	}

	byID := make(map[uuid.UUID]models.Survey, len(surveys))
	for _, survey := range surveys {
		byID[survey.ID] = survey
	}
	return byID, nil
}
