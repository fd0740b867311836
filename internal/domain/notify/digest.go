package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/okian/sentiment/internal/domain/model"
)

// DefaultSubject is the subject line of digest emails.
const DefaultSubject = "📊 Bad prediction report - Sentiment Analysis"

const (
	maxExcerptRunes = 100
	timestampLayout = "2006-01-02 15:04:05"
)

type digestRow struct {
	Excerpt    string
	Marker     string
	Label      string
	Confidence string
	Timestamp  string
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2c3e50; }
table { width: 100%; border-collapse: collapse; margin-top: 20px; }
th { background-color: #3498db; color: white; padding: 12px; text-align: left; }
td { padding: 12px; border-bottom: 1px solid #e0e0e0; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0; color: #7f8c8d; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
<h1>📊 Bad prediction report</h1>
<p>{{len .}} new bad prediction(s) have been reported.</p>
<table>
<thead>
<tr><th>Analyzed text</th><th style="text-align: center;">Predicted sentiment</th><th style="text-align: center;">Confidence</th><th style="text-align: center;">Timestamp</th></tr>
</thead>
<tbody>
{{- range .}}
<tr>
<td>{{.Excerpt}}</td>
<td style="text-align: center;">{{.Marker}} {{.Label}}</td>
<td style="text-align: center;">{{.Confidence}}</td>
<td style="text-align: center;">{{.Timestamp}}</td>
</tr>
{{- end}}
</tbody>
</table>
<div class="footer">
<p>This email was generated automatically by the Sentiment Analysis service.</p>
<p>Use these reports to improve the model.</p>
</div>
</div>
</body>
</html>
`))

// Render builds the HTML digest for reports, in the order given.
func Render(reports []model.Report) (string, error) {
	rows := make([]digestRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, digestRow{
			Excerpt:    excerpt(r.Text),
			Marker:     marker(r.PredictedSentiment),
			Label:      capitalize(string(r.PredictedSentiment)),
			Confidence: fmt.Sprintf("%.2f%%", r.ConfidenceScore*100),
			Timestamp:  r.CreatedAt.Format(timestampLayout),
		})
	}
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= maxExcerptRunes {
		return text
	}
	return string([]rune(text)[:maxExcerptRunes]) + "..."
}

func marker(s model.Sentiment) string {
	if s == model.Positive {
		return "😊"
	}
	return "😞"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}
