package specs

import "time"

// Target is a microarchitecture (e.g. skylake). Shared by every spec built for it.
type Target struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"column:name;size:100;not null;uniqueIndex:uk_target_name" json:"name"`
	Vendor     string    `gorm:"column:vendor;size:100" json:"vendor,omitempty"`
	Generation *int      `gorm:"column:generation" json:"generation,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Target) TableName() string { return "targets" }

type Feature struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:100;not null;uniqueIndex:uk_feature_name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Feature) TableName() string { return "features" }

type TargetFeature struct {
	TargetID  int64     `gorm:"column:target_id;primaryKey" json:"target_id"`
	FeatureID int64     `gorm:"column:feature_id;primaryKey;index" json:"feature_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (TargetFeature) TableName() string { return "target_features" }

type TargetParent struct {
	TargetID  int64     `gorm:"column:target_id;primaryKey" json:"target_id"`
	ParentID  int64     `gorm:"column:parent_id;primaryKey;index" json:"parent_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (TargetParent) TableName() string { return "target_parents" }

type Architecture struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform   string    `gorm:"column:platform;size:50;not null;uniqueIndex:uk_architecture,priority:1" json:"platform"`
	PlatformOS string    `gorm:"column:platform_os;size:50;not null;uniqueIndex:uk_architecture,priority:2" json:"platform_os"`
	TargetID   int64     `gorm:"column:target_id;not null;uniqueIndex:uk_architecture,priority:3" json:"target_id"`
	Target     *Target   `gorm:"foreignKey:TargetID" json:"target,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Architecture) TableName() string { return "architectures" }

type Compiler struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:50;not null;uniqueIndex:uk_compiler,priority:1" json:"name"`
	Version   string    `gorm:"column:version;size:50;not null;uniqueIndex:uk_compiler,priority:2" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Compiler) TableName() string { return "compilers" }
