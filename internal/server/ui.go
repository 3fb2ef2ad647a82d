// internal/server/ui.go
package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"street-food-scanner/internal/models"
	"street-food-scanner/internal/scanner"
)

//go:embed templates/*.html
var templateFS embed.FS

type indexView struct {
	Language string
	Error    string
}

type resultView struct {
	Result       *models.ScanResult
	Record       *models.FoodRecord
	ImagePreview template.URL
	Language     string
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"vietnameseName": func(r *models.FoodRecord) string {
			if r != nil && r.Name != nil && r.Name.Vietnamese != "" {
				return r.Name.Vietnamese
			}
			return "Món ăn"
		},
		"englishName": func(r *models.FoodRecord) string {
			if r != nil && r.Name != nil && r.Name.English != "" {
				return r.Name.English
			}
			return "Vietnamese Dish"
		},
		"t":          translate,
		"spiceClass": spiceClass,
		"spiceLabel": spiceLabel,
		"percent": func(v *float64) string {
			if v == nil {
				return ""
			}
			return fmt.Sprintf("%.0f%%", *v*100)
		},
		"calories": func(c *models.Calories) string {
			if c == nil {
				return ""
			}
			switch {
			case c.Estimate != nil && c.Range != "":
				return fmt.Sprintf("~%.0f kcal (%s)", *c.Estimate, c.Range)
			case c.Estimate != nil:
				return fmt.Sprintf("~%.0f kcal", *c.Estimate)
			default:
				return c.Range
			}
		},
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

func spiceClass(level models.SpiceLevel) string {
	switch level {
	case models.SpiceHot:
		return "spice-hot"
	case models.SpiceMedium:
		return "spice-medium"
	case models.SpiceMild:
		return "spice-mild"
	default:
		return "spice-none"
	}
}

func spiceLabel(lang string, level models.SpiceLevel) string {
	switch level {
	case models.SpiceHot:
		return translate(lang, "hot")
	case models.SpiceMedium:
		return translate(lang, "medium")
	case models.SpiceMild:
		return translate(lang, "mild")
	default:
		return translate(lang, "notSpicy")
	}
}

func (s *FoodScannerServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, http.StatusOK, "index.html", indexView{Language: uiLanguage(r.URL.Query().Get("lang"))})
}

func (s *FoodScannerServer) handleScanForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	img, err := readUpload(r)
	if err != nil {
		s.render(w, http.StatusBadRequest, "index.html", indexView{
			Language: uiLanguage(r.FormValue("language")),
			Error:    err.Error(),
		})
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	result := s.scanner.Identify(r.Context(), img, scanner.Request{Language: language, Source: "ui"})

	s.render(w, http.StatusOK, "result.html", resultView{
		Result:       result,
		Record:       result.Data,
		ImagePreview: template.URL("data:" + img.MimeType + ";base64," + img.Data),
		Language:     uiLanguage(language),
	})
}

func (s *FoodScannerServer) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.WithError(err).Error("failed to render template", map[string]interface{}{"template": name})
	}
}
