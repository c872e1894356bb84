package model

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	IsAdmin   bool      `json:"is_admin"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is one respondent's submitted set of answers to a survey.
// Responses are created atomically at submission time and never edited.
type Response struct {
	ID          int            `json:"id"`
	SurveyID    int            `json:"survey_id"`
	UserID      *int           `json:"user_id"`
	Answers     map[string]any `json:"responses"`
	SubmittedAt time.Time      `json:"submitted_at"`
	IP          string         `json:"ip_address,omitempty"`
	User        *User          `json:"user,omitempty"`
}

type ForumPost struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Active        bool           `json:"is_active"`
	UserID        int            `json:"user_id"`
	Author        *User          `json:"author,omitempty"`
	CommentsCount int            `json:"comments_count"`
	Comments      []ForumComment `json:"comments,omitempty"`
}

type ForumComment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `json:"is_active"`
	UserID    int       `json:"user_id"`
	PostID    int       `json:"post_id"`
	Author    *User     `json:"author,omitempty"`
}
