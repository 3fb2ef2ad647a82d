// internal/models/food.go
package models

import (
	"strings"
	"time"
)

type FoodRecord struct {
	Name         *DishName  `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	Ingredients  []string   `json:"ingredients,omitempty"`
	Calories     *Calories  `json:"calories,omitempty"`
	Allergens    []string   `json:"allergens,omitempty"`
	SpiceLevel   SpiceLevel `json:"spiceLevel,omitempty"`
	CulturalNote string     `json:"culturalNote,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
}

type DishName struct {
	Vietnamese    string `json:"vietnamese,omitempty"`
	English       string `json:"english,omitempty"`
	Pronunciation string `json:"pronunciation,omitempty"`
}

type Calories struct {
	Estimate *float64 `json:"estimate,omitempty"`
	Range    string   `json:"range,omitempty"`
}

type SpiceLevel string

const (
	SpiceMild   SpiceLevel = "mild"
	SpiceMedium SpiceLevel = "medium"
	SpiceHot    SpiceLevel = "hot"
)

// ParseSpiceLevel normalizes case and surrounding space. Unknown values are
// returned as-is with ok=false.
func ParseSpiceLevel(s string) (SpiceLevel, bool) {
	level := SpiceLevel(strings.ToLower(strings.TrimSpace(s)))
	return level, level.Valid()
}

func (l SpiceLevel) Valid() bool {
	switch l {
	case SpiceMild, SpiceMedium, SpiceHot:
		return true
	}
	return false
}

type ErrorCode string

const (
	ErrCodeNotFood  ErrorCode = "NOT_FOOD"
	ErrCodeAPIError ErrorCode = "API_ERROR"
)

const NotFoodMessage = "The image doesn't appear to contain food. Please try another photo."

// ScanResult is the wire shape returned by the CLI, the HTTP API and the MCP tool.
type ScanResult struct {
	Success bool        `json:"success"`
	Data    *FoodRecord `json:"data,omitempty"`
	Error   *ScanError  `json:"error,omitempty"`
}

type ScanError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func SuccessResult(record *FoodRecord) *ScanResult {
	return &ScanResult{Success: true, Data: record}
}

func NotFoodResult() *ScanResult {
	return &ScanResult{
		Success: false,
		Error:   &ScanError{Code: ErrCodeNotFood, Message: NotFoodMessage},
	}
}

func APIErrorResult(err error) *ScanResult {
	return &ScanResult{
		Success: false,
		Error:   &ScanError{Code: ErrCodeAPIError, Message: err.Error()},
	}
}

// Code returns the outcome code used for storage and metrics: "SUCCESS" or the error code.
func (r *ScanResult) Code() string {
	if r.Success || r.Error == nil {
		return "SUCCESS"
	}
	return string(r.Error.Code)
}

type ScanRequest struct {
	ImageBase64 string `json:"image"`
	MimeType    string `json:"mimeType"`
	Language    string `json:"language"`
	Source      string `json:"-"` // "cli", "http", "ui", "mcp"
}

type Scan struct {
	ID        string      `json:"id"`
	Language  string      `json:"language"`
	MimeType  string      `json:"mimeType"`
	Source    string      `json:"source"`
	Outcome   string      `json:"outcome"`
	Record    *FoodRecord `json:"record,omitempty"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}
