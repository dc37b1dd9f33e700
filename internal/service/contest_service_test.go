package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/repository"
)

func seedAssessment(t *testing.T, repo repository.ContestRepository, code string, start time.Time, end *time.Time) models.Contest {
	t.Helper()
	contest := models.Contest{
		Name:      "Assessment",
		Code:      code,
		Type:      models.ContestTypeAssessment,
		StartDate: start,
		EndDate:   end,
		Questions: []models.Question{
			{
				Title:       "Sum <script>alert(1)</script>",
				Description: "<p>Add two numbers</p><script>alert(1)</script>",
				Type:        models.QuestionTypeCoding,
				Position:    1,
				TestCases: []models.TestCase{
					{Input: "5 7", Expected: "12", Points: 5, Visible: true, Position: 1},
					{Input: "1 1", Expected: "2", Points: 5, Position: 2},
				},
			},
			{
				Title:    "Pick",
				Type:     models.QuestionTypeMCQ,
				Points:   3,
				Position: 2,
				Options:  []models.MCQOption{{Text: "right", IsCorrect: true}, {Text: "wrong"}},
			},
		},
	}
	require.NoError(t, repo.UpsertByCode(context.Background(), &contest))
	return contest
}

func TestContestServiceRegister(t *testing.T) {
	db := setupServiceDB(t)
	repo := repository.NewContestRepository(db)
	past := time.Now().Add(-time.Hour)
	ended := time.Now().Add(-time.Minute)

	open := seedAssessment(t, repo, "arenacnst-1234", past, nil)
	seedAssessment(t, repo, "arenacnst-9999", past, &ended)
	seedAssessment(t, repo, "legacy-code", past, nil)

	svc := NewContestService(repo, newTestValidator(), nil, time.Minute, testLogger())
	ctx := context.Background()

	resp, err := svc.Register(ctx, dto.RegisterRequest{ContestCode: " arenacnst-1234 ", PRN: "PRN123456", Name: "Asha"})
	require.NoError(t, err)
	require.Equal(t, open.ID, resp.Contest.ID)
	require.Equal(t, "PRN123456", resp.ParticipantKey)
	require.Equal(t, models.DefaultContestDurationMins, resp.Contest.DurationMins)

	_, err = svc.Register(ctx, dto.RegisterRequest{ContestCode: "arenacnst-0000", PRN: "PRN123456", Name: "Asha"})
	require.ErrorIs(t, err, ErrContestNotFound)

	_, err = svc.Register(ctx, dto.RegisterRequest{ContestCode: "arenacnst-9999", PRN: "PRN123456", Name: "Asha"})
	require.ErrorIs(t, err, ErrContestClosed)

	_, err = svc.Register(ctx, dto.RegisterRequest{ContestCode: "legacy-code", PRN: "PRN123456", Name: "Asha"})
	require.ErrorIs(t, err, ErrInvalidContestCode)

	_, err = svc.Register(ctx, dto.RegisterRequest{ContestCode: "arenacnst-1234", PRN: "P1", Name: "Asha"})
	require.Error(t, err)

	for _, code := range []string{"arenacnst-12", "arenacnst-12345", "no-such-contest"} {
		_, err = svc.Register(ctx, dto.RegisterRequest{ContestCode: code, PRN: "PRN123456", Name: "Asha"})
		require.ErrorIs(t, err, ErrInvalidContestCode, code)
	}
}

func TestContestServiceRegisterPracticeAcceptsFreeformCode(t *testing.T) {
	db := setupServiceDB(t)
	repo := repository.NewContestRepository(db)
	practice := models.Contest{Name: "Warmup", Code: "warmup", Type: models.ContestTypePractice}
	require.NoError(t, repo.UpsertByCode(context.Background(), &practice))

	svc := NewContestService(repo, newTestValidator(), nil, time.Minute, testLogger())
	resp, err := svc.Register(context.Background(), dto.RegisterRequest{ContestCode: "warmup", PRN: "PRN123456", Name: "Asha"})
	require.NoError(t, err)
	require.Equal(t, practice.ID, resp.Contest.ID)
}

func TestContestServiceQuestionsHideAnswersAndCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := setupServiceDB(t)
	repo := repository.NewContestRepository(db)
	contest := seedAssessment(t, repo, "arenacnst-2222", time.Time{}, nil)

	svc := NewContestService(repo, newTestValidator(), redisClient, time.Minute, testLogger())
	ctx := context.Background()

	resp, err := svc.Questions(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)
	require.Equal(t, 13, resp.MaxScore)
	require.Len(t, resp.Languages, 5)

	coding := resp.Questions[0]
	require.NotContains(t, coding.Title, "<script>")
	require.NotContains(t, coding.Description, "<script>")
	require.Contains(t, coding.Description, "<p>Add two numbers</p>")
	require.Len(t, coding.TestCases, 1)
	require.Equal(t, 1, coding.HiddenTestCases)
	require.Equal(t, 10, coding.MaxScore)
	require.Len(t, coding.Templates, 5)

	mcq := resp.Questions[1]
	require.Len(t, mcq.Options, 2)
	require.Empty(t, mcq.TestCases)

	require.True(t, mini.Exists("arena:contest:"+contest.ID+":questions"))

	require.NoError(t, db.Exec("DELETE FROM test_cases").Error)
	cached, err := svc.Questions(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, cached.Questions[0].TestCases, 1)

	_, err = svc.Questions(ctx, "missing")
	require.ErrorIs(t, err, ErrContestNotFound)
}
