package models

import "time"

// Case is one court matter. Uid is the key it had in the upstream map.
type Case struct {
	ID               uint               `gorm:"primary_key" json:"id"`
	ReportId         uint               `gorm:"not null;uniqueIndex:uniq_case_uid,priority:1" json:"report_id"`
	Uid              string             `gorm:"size:128;not null;uniqueIndex:uniq_case_uid,priority:2" json:"uid"`
	Number           *string            `gorm:"size:100" json:"number"`
	Name             *string            `gorm:"type:text" json:"name"`
	Type             *string            `gorm:"size:100" json:"type"`
	Status           *string            `gorm:"size:50" json:"status"`
	Jurisdiction     *string            `gorm:"size:100" json:"jurisdiction"`
	CourtName        *string            `gorm:"size:255" json:"court_name"`
	State            *string            `gorm:"size:20" json:"state"`
	Suburb           *string            `gorm:"size:100" json:"suburb"`
	Source           *string            `gorm:"size:100" json:"source"`
	MatterType       *string            `gorm:"size:100" json:"matter_type"`
	MostRecentEvent  *string            `gorm:"type:text" json:"most_recent_event"`
	NotificationTime *time.Time         `json:"notification_time"`
	NextHearingDate  *time.Time         `json:"next_hearing_date"`
	Parties          []*CaseParty       `gorm:"foreignKey:CaseId;constraint:OnDelete:CASCADE" json:"parties,omitempty"`
	Hearings         []*CaseHearing     `gorm:"foreignKey:CaseId;constraint:OnDelete:CASCADE" json:"hearings,omitempty"`
	Documents        []*CaseDocument    `gorm:"foreignKey:CaseId;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Applications     []*CaseApplication `gorm:"foreignKey:CaseId;constraint:OnDelete:CASCADE" json:"applications,omitempty"`
	Judgments        []*CaseJudgment    `gorm:"foreignKey:CaseId;constraint:OnDelete:CASCADE" json:"judgments,omitempty"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

type CaseParty struct {
	ID                 uint      `gorm:"primary_key" json:"id"`
	CaseId             uint      `gorm:"index;not null" json:"case_id"`
	Name               *string   `gorm:"size:255" json:"name"`
	Role               *string   `gorm:"size:100" json:"role"`
	Type               *string   `gorm:"size:100" json:"type"`
	Abn                *string   `gorm:"size:20" json:"abn"`
	Acn                *string   `gorm:"size:20" json:"acn"`
	RepresentativeName *string   `gorm:"size:255" json:"representative_name"`
	RepresentativeFirm *string   `gorm:"size:255" json:"representative_firm"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type CaseHearing struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	CaseId       uint       `gorm:"index;not null" json:"case_id"`
	Datetime     *time.Time `json:"datetime"`
	Officer      *string    `gorm:"size:255" json:"officer"`
	CourtRoom    *string    `gorm:"size:100" json:"court_room"`
	CourtName    *string    `gorm:"size:255" json:"court_name"`
	CourtAddress *string    `gorm:"size:255" json:"court_address"`
	Type         *string    `gorm:"size:100" json:"type"`
	Outcome      *string    `gorm:"type:text" json:"outcome"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type CaseDocument struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	CaseId      uint       `gorm:"index;not null" json:"case_id"`
	Date        *time.Time `json:"date"`
	Title       *string    `gorm:"size:255" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	FiledBy     *string    `gorm:"size:255" json:"filed_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type CaseApplication struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	CaseId        uint       `gorm:"index;not null" json:"case_id"`
	Title         *string    `gorm:"size:255" json:"title"`
	Type          *string    `gorm:"size:100" json:"type"`
	Status        *string    `gorm:"size:50" json:"status"`
	DateFiled     *time.Time `json:"date_filed"`
	DateFinalised *time.Time `json:"date_finalised"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type CaseJudgment struct {
	ID        uint       `gorm:"primary_key" json:"id"`
	CaseId    uint       `gorm:"index;not null" json:"case_id"`
	Date      *time.Time `json:"date"`
	Title     *string    `gorm:"size:255" json:"title"`
	Officer   *string    `gorm:"size:255" json:"officer"`
	Citation  *string    `gorm:"size:255" json:"citation"`
	Outcome   *string    `gorm:"type:text" json:"outcome"`
	Url       *string    `gorm:"size:500" json:"url"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
