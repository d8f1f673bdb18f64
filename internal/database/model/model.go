package model

import "time"

// ChatLog records one completed turn for audit and evaluation. Failed
// turns are never written.
type ChatLog struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AccessKey      string     `gorm:"column:access_key;size:64;index" json:"access_key"`
	CourseKey      string     `gorm:"column:course_key;size:256;index" json:"course_key"`
	ActivityKey    string     `gorm:"column:activity_key;size:256" json:"activity_key"`
	Question       string     `gorm:"column:question;type:text" json:"question"`
	Answer         string     `gorm:"column:answer;type:text" json:"answer"`
	Classification string     `gorm:"column:classification;size:32" json:"classification"`
	Model          string     `gorm:"column:model;size:64" json:"model"`
	InputTokens    int        `gorm:"column:input_tokens" json:"input_tokens"`
	CreatedAt      *time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ChatLog) TableName() string { return "chat_logs" }
