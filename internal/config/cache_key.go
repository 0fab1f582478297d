package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:student:%d", studentID)
}

// StudentAttemptStartKey returns the cache key for a student's attempt start time
func (r *CacheKeyStruct) StudentAttemptStartKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:attempt_start", studentID, examID)
}

// StudentPaperKey returns the cache key for a student's materialized paper
func (r *CacheKeyStruct) StudentPaperKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:paper", studentID, examID)
}

// StudentLabelMapsKey returns the cache key for a student's option label maps
func (r *CacheKeyStruct) StudentLabelMapsKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:label_maps", studentID, examID)
}

// StudentAnswersKey returns the cache key for a student's autosaved answers
func (r *CacheKeyStruct) StudentAnswersKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:answers", studentID, examID)
}

// ExamDefinitionKey returns the cache key for a published exam's definition
func (r *CacheKeyStruct) ExamDefinitionKey(examID string) string {
	return fmt.Sprintf("exam:%s:definition", examID)
}

// ExamAnswerKeyKey returns the cache key for a published exam's answer key
func (r *CacheKeyStruct) ExamAnswerKeyKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ExamReportKey returns the cache key for an exam's analytics report
func (r *CacheKeyStruct) ExamReportKey(examID string) string {
	return fmt.Sprintf("exam:%s:report", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
