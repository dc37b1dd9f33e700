package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Contest{},
		&models.Question{},
		&models.Example{},
		&models.Constraint{},
		&models.TestCase{},
		&models.MCQOption{},
		&models.LanguageTemplate{},
		&models.Result{},
		&models.Submission{},
		&models.MCQSubmission{},
		&models.Progress{},
	))
	return db
}

func sampleContest(code string) *models.Contest {
	return &models.Contest{
		Name:         "Weekly",
		Code:         code,
		Type:         models.ContestTypeAssessment,
		DurationMins: 45,
		Questions: []models.Question{
			{
				Title:    "Second",
				Type:     models.QuestionTypeMCQ,
				Points:   2,
				Position: 2,
				Options: []models.MCQOption{
					{Text: "yes", IsCorrect: true},
					{Text: "no"},
				},
			},
			{
				Title:    "First",
				Type:     models.QuestionTypeCoding,
				Position: 1,
				TestCases: []models.TestCase{
					{Input: "2", Expected: "4", Points: 3, Position: 2},
					{Input: "1", Expected: "2", Points: 3, Visible: true, Position: 1},
				},
				Templates: []models.LanguageTemplate{{LanguageID: models.LanguagePython, Name: "Python", Template: "print()"}},
			},
		},
	}
}

func TestContestRepositoryLoadsOrderedQuestionTree(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	ctx := context.Background()

	contest := sampleContest("arenacnst-0001")
	require.NoError(t, repo.UpsertByCode(ctx, contest))
	require.NotEmpty(t, contest.ID)

	byCode, err := repo.GetByCode(ctx, "arenacnst-0001")
	require.NoError(t, err)
	require.Equal(t, contest.ID, byCode.ID)

	loaded, err := repo.GetWithQuestions(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 2)
	require.Equal(t, "First", loaded.Questions[0].Title)
	require.Equal(t, "1", loaded.Questions[0].TestCases[0].Input)
	require.Len(t, loaded.Questions[0].Templates, 1)
	require.Len(t, loaded.Questions[1].Options, 2)
	require.NotEmpty(t, loaded.Questions[1].Options[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContestRepositoryUpsertReplacesQuestions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContestRepository(db)
	ctx := context.Background()

	first := sampleContest("practice-1")
	require.NoError(t, repo.UpsertByCode(ctx, first))

	second := sampleContest("practice-1")
	second.Name = "Renamed"
	second.Questions = second.Questions[:1]
	require.NoError(t, repo.UpsertByCode(ctx, second))
	require.Equal(t, first.ID, second.ID)

	loaded, err := repo.GetWithQuestions(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", loaded.Name)
	require.Len(t, loaded.Questions, 1)

	var options int64
	require.NoError(t, db.Model(&models.MCQOption{}).Count(&options).Error)
	require.Equal(t, int64(2), options)
}

func TestResultRepositoryCreateAlwaysInsertsNewRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()

	build := func(score int) *models.Result {
		return &models.Result{
			ContestID:      "contest-1",
			ParticipantKey: "PRN001",
			Score:          score,
			Submissions: []models.Submission{
				{QuestionID: 1, LanguageID: models.LanguagePython, Code: "print(12)", Score: score, Outcomes: datatypes.JSON(`[]`)},
			},
			MCQSubmissions: []models.MCQSubmission{
				{QuestionID: 2, ParticipantKey: "PRN001", SelectedOptionID: "opt", Score: 0},
			},
		}
	}

	first := build(5)
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := build(7)
	require.NoError(t, repo.Create(ctx, second))

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, first.ID, first.Submissions[0].ResultID)

	results, err := repo.ListByContest(ctx, "contest-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, second.ID, results[0].ID)
	require.Len(t, results[0].Submissions, 1)
	require.Len(t, results[0].MCQSubmissions, 1)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.Score)
}

func TestProgressRepositoryUpsertUpdatesInPlace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "contest-1", "PRN001")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.Progress{ContestID: "contest-1", ParticipantKey: "PRN001", UserCode: "a", LanguageID: 71, LastUpdated: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &models.Progress{ContestID: "contest-1", ParticipantKey: "PRN001", UserCode: "b", LanguageID: 54, LastUpdated: time.Now()}))

	stored, err := repo.Get(ctx, "contest-1", "PRN001")
	require.NoError(t, err)
	require.Equal(t, "b", stored.UserCode)
	require.Equal(t, 54, stored.LanguageID)

	var count int64
	require.NoError(t, db.Model(&models.Progress{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
