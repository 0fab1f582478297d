package model

import "time"

// Student represents a student user. Number is the school-issued student
// number used as the login identifier.
type Student struct {
	ID           int       `json:"id"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	ClassLabel   string    `json:"class_label"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Number   string `json:"number" binding:"required,min=4,max=20"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Number     string `json:"number" binding:"required,min=4,max=20"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	ClassLabel string `json:"class_label" binding:"required,min=1,max=20"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Number     string `json:"number" binding:"required,min=4,max=20"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	ClassLabel string `json:"class_label" binding:"required,min=1,max=20"`
	Password   string `json:"password" binding:"omitempty,min=6,max=128"`
}
