package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/lawdesk/crm_backend/utils"
)

// MainCategory is the practice area (e.g. Immigration); Category is the
// matter type underneath it (e.g. Citizenship).
type MainCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MainCategory) TableName() string {
	return "misc_maincategory"
}

type Category struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ParentId  *int      `gorm:"index" json:"parent_id"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Parent *MainCategory `gorm:"foreignKey:ParentId" json:"parent,omitempty"`
}

func (Category) TableName() string {
	return "misc_category"
}

// CategoryInfo is the prebuilt lookup value for name-based resolution.
type CategoryInfo struct {
	Id       int    `json:"id"`
	Name     string `json:"name"`
	MainName string `json:"main_name"`
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	return utils.FetchAllModels[Category](ctx, "name")
}

func GetMainCategories(ctx context.Context) ([]*MainCategory, error) {
	return utils.FetchAllModels[MainCategory](ctx, "name")
}

// BuildCategoryNameMap indexes categories by lower-cased trimmed name for
// the text-based fallback path. Built once per report build and passed into
// ResolveCategoryLabel explicitly.
func BuildCategoryNameMap(categories []*Category, mainNamesById map[int]string) map[string]CategoryInfo {
	byName := make(map[string]CategoryInfo, len(categories))
	for _, category := range categories {
		if category == nil {
			continue
		}
		info := CategoryInfo{Id: category.ID, Name: category.Name}
		if category.ParentId != nil {
			info.MainName = mainNamesById[*category.ParentId]
		}
		byName[strings.ToLower(strings.TrimSpace(category.Name))] = info
	}
	return byName
}

func categoryLabel(sub, main string) string {
	sub = strings.TrimSpace(sub)
	main = strings.TrimSpace(main)
	if sub == "" {
		return main
	}
	if main == "" {
		return sub
	}
	return fmt.Sprintf("%s (%s)", sub, main)
}

// ResolveCategoryLabel produces the display label for a lead's category.
// Resolution order:
//  1. the relational join object, when the query could produce one;
//  2. the prebuilt name map, case-insensitive on the lead's raw text;
//  3. a trailing "(...)" suffix parsed out of the raw text;
//  4. "Category <id>" / "Uncategorized" as the last resort.
//
// A missing main category never suppresses the sub-category name.
func ResolveCategoryLabel(categoryText string, categoryId *int, joined *Category, byName map[string]CategoryInfo) string {
	label, _ := ResolveCategoryParts(categoryText, categoryId, joined, byName)
	return label
}

// ResolveCategoryParts is ResolveCategoryLabel plus the main-category name on
// its own, which report filters match against separately.
func ResolveCategoryParts(categoryText string, categoryId *int, joined *Category, byName map[string]CategoryInfo) (label string, mainName string) {
	if joined != nil {
		main := ""
		if joined.Parent != nil {
			main = joined.Parent.Name
		}
		if label := categoryLabel(joined.Name, main); label != "" {
			return label, main
		}
	}

	trimmed := strings.TrimSpace(categoryText)
	if trimmed != "" {
		if info, ok := byName[strings.ToLower(trimmed)]; ok {
			return categoryLabel(info.Name, info.MainName), info.MainName
		}
		// free-text rows sometimes already carry "Sub (Main)"
		if sub, main, ok := splitParenSuffix(trimmed); ok {
			return categoryLabel(sub, main), main
		}
		return trimmed, ""
	}

	if categoryId != nil && *categoryId > 0 {
		return fmt.Sprintf("Category %d", *categoryId), ""
	}
	return "Uncategorized", ""
}

// splitParenSuffix parses "Citizenship (Immigration)" into its two parts.
func splitParenSuffix(s string) (sub string, main string, ok bool) {
	if !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	open := strings.LastIndex(s, "(")
	if open <= 0 {
		return "", "", false
	}
	sub = strings.TrimSpace(s[:open])
	main = strings.TrimSpace(s[open+1 : len(s)-1])
	if sub == "" || main == "" {
		return "", "", false
	}
	return sub, main, true
}
