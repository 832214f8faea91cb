package leetcode

import (
	"net/url"

	"streak-bot/internal/streak"
)

// ---------------------------------------------
// Domain Models
// ---------------------------------------------

// UserCalendar is one year of activity for a user, as reported by LeetCode.
type UserCalendar struct {
	Username           string          `json:"username"`
	Year               int             `json:"year"`
	ActiveYears        []int           `json:"active_years"`
	BestStreak         int             `json:"best_streak"`
	TotalActiveDays    int             `json:"total_active_days"`
	SubmissionCalendar streak.Calendar `json:"submission_calendar"`
}

// ProfileURL is the public profile page used when a username is displayed.
func ProfileURL(username string) string {
	return "https://leetcode.com/u/" + url.PathEscape(username) + "/"
}

// ---------------------------------------------
// GraphQL Wire Models
// ---------------------------------------------

const calendarQuery = `
query userProfileCalendar($username: String!, $year: Int) {
  matchedUser(username: $username) {
    userCalendar(year: $year) {
      activeYears
      streak
      totalActiveDays
      submissionCalendar
    }
  }
}`

const profileQuery = `
query userPublicProfile($username: String!) {
  matchedUser(username: $username) {
    username
  }
}`

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Data is a pointer so a `"data": null` envelope can be told apart from a
// null matchedUser.
type calendarResponse struct {
	Data *struct {
		MatchedUser *struct {
			UserCalendar *struct {
				ActiveYears        []int  `json:"activeYears"`
				Streak             int    `json:"streak"`
				TotalActiveDays    int    `json:"totalActiveDays"`
				SubmissionCalendar string `json:"submissionCalendar"`
			} `json:"userCalendar"`
		} `json:"matchedUser"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type profileResponse struct {
	Data struct {
		MatchedUser *struct {
			Username string `json:"username"`
		} `json:"matchedUser"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}
