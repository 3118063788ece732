package model

import "time"

type Conversation struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SeekerUID  string    `gorm:"column:seeker_uid;size:128;index:idx_seeker_company,unique" json:"seekerUid"`
	CompanyUID string    `gorm:"column:company_uid;size:128;index:idx_seeker_company,unique" json:"companyUid"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}
