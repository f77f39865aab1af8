package models

import "time"

type Insolvency struct {
	ID            uint               `gorm:"primary_key" json:"id"`
	ReportId      uint               `gorm:"not null;uniqueIndex:uniq_insolvency_uid,priority:1" json:"report_id"`
	Uid           string             `gorm:"size:128;not null;uniqueIndex:uniq_insolvency_uid,priority:2" json:"uid"`
	Number        *string            `gorm:"size:100" json:"number"`
	Name          *string            `gorm:"size:255" json:"name"`
	Type          *string            `gorm:"size:100" json:"type"`
	NoticeType    *string            `gorm:"size:100" json:"notice_type"`
	Status        *string            `gorm:"size:50" json:"status"`
	Court         *string            `gorm:"size:255" json:"court"`
	PublishedDate *time.Time         `json:"published_date"`
	Url           *string            `gorm:"size:500" json:"url"`
	Parties       []*InsolvencyParty `gorm:"foreignKey:InsolvencyId;constraint:OnDelete:CASCADE" json:"parties,omitempty"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

type InsolvencyParty struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	InsolvencyId uint      `gorm:"index;not null" json:"insolvency_id"`
	Name         *string   `gorm:"size:255" json:"name"`
	Role         *string   `gorm:"size:100" json:"role"`
	Abn          *string   `gorm:"size:20" json:"abn"`
	Acn          *string   `gorm:"size:20" json:"acn"`
	Practitioner *string   `gorm:"size:255" json:"practitioner"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
