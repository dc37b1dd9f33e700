package service

import (
	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
)

// PracticeContestCode identifies the built-in practice contest.
const PracticeContestCode = "practice-basics"

// PracticeContest returns the built-in practice contest definition.
func PracticeContest() dto.SeedContestRequest {
	return dto.SeedContestRequest{
		Name:         "Practice Basics",
		ContestCode:  PracticeContestCode,
		Type:         models.ContestTypePractice,
		DurationMins: models.DefaultContestDurationMins,
		PublicAccess: true,
		Questions: []dto.SeedQuestionRequest{
			{
				Title: "Two Sum",
				Description: "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target.\n\n" +
					"Each input has exactly one solution and the same element may not be used twice. " +
					"Input is the array on the first line and the target on the second; print the two indices separated by a space.",
				Type: models.QuestionTypeCoding,
				Examples: []models.Example{
					{Input: "nums = [2,7,11,15], target = 9", Output: "[0,1]", Explanation: "Because nums[0] + nums[1] == 9, we return [0, 1]."},
					{Input: "nums = [3,2,4], target = 6", Output: "[1,2]", Explanation: "Because nums[1] + nums[2] == 6, we return [1, 2]."},
				},
				Constraints: []string{
					"2 <= nums.length <= 10^4",
					"-10^9 <= nums[i] <= 10^9",
					"-10^9 <= target <= 10^9",
					"Only one valid answer exists.",
				},
				TestCases: []dto.SeedTestCase{
					{Input: "2 7 11 15\n9", Expected: "0 1", Points: 5, Visible: true},
					{Input: "3 2 4\n6", Expected: "1 2", Points: 5, Visible: true},
					{Input: "3 3\n6", Expected: "0 1", Points: 10},
				},
				Templates: []dto.TemplateResponse{
					{LanguageID: models.LanguageJavaScript, Name: "JavaScript", Template: "function twoSum(nums, target) {\n  // Your code here\n}\n"},
				},
			},
			{
				Title: "Palindrome Number",
				Description: "Given an integer x, print true if x is a palindrome, and false otherwise.\n\n" +
					"A palindrome is a number that reads the same backward as forward.",
				Type: models.QuestionTypeCoding,
				Examples: []models.Example{
					{Input: "x = 121", Output: "true", Explanation: "121 reads as 121 from left to right and from right to left."},
					{Input: "x = -121", Output: "false", Explanation: "From left to right, it reads -121. From right to left, it becomes 121-."},
				},
				Constraints: []string{"-2^31 <= x <= 2^31 - 1"},
				TestCases: []dto.SeedTestCase{
					{Input: "121", Expected: "true", Points: 5, Visible: true},
					{Input: "-121", Expected: "false", Points: 5, Visible: true},
					{Input: "10", Expected: "false", Points: 10},
				},
				Templates: []dto.TemplateResponse{
					{LanguageID: models.LanguageJavaScript, Name: "JavaScript", Template: "function isPalindrome(x) {\n  // Your code here\n}\n"},
				},
			},
		},
	}
}
