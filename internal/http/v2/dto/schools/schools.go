// Package schools contiene los DTOs de escuelas y aulas.
package schools

import "time"

type CreateSchoolRequest struct {
	Name string `json:"name"`
}

type SchoolResponse struct {
	OK         bool      `json:"ok"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DirectorID string    `json:"director_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateClassroomRequest struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

type ClassroomResponse struct {
	OK        bool      `json:"ok"`
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
