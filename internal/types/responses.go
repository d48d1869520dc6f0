package types

import "time"

// RawTodo is one todo item as returned by the extraction service.
type RawTodo struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	SourceText     string     `json:"source_text,omitempty"`
	TextStartIndex *int       `json:"text_start_index,omitempty"`
	TextEndIndex   *int       `json:"text_end_index,omitempty"`
}

// TodoExtractionResponse is the body of POST /api/audio/extract-todos.
type TodoExtractionResponse struct {
	Todos []RawTodo `json:"todos"`
}

// RawSchedule is one schedule item as returned by the extraction service.
type RawSchedule struct {
	ScheduleTime   *time.Time `json:"schedule_time"`
	Description    string     `json:"description"`
	Status         string     `json:"status,omitempty"`
	SourceText     string     `json:"source_text,omitempty"`
	TextStartIndex *int       `json:"text_start_index,omitempty"`
	TextEndIndex   *int       `json:"text_end_index,omitempty"`
}

// ScheduleExtractionResponse is the body of POST /api/audio/extract-schedules.
type ScheduleExtractionResponse struct {
	Schedules []RawSchedule `json:"schedules"`
}
