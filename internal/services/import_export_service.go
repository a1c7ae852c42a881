package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/normalizer"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ImportExportService converts between external bank/attempt formats
// and the canonical schema. Importing only parses and normalizes; the
// caller decides whether to install the resulting bank, which keeps
// imports all-or-nothing.
type ImportExportService interface {
	// Import operations
	ImportBankFromFile(ctx context.Context, file multipart.File, filename string, mode models.Mode) (*models.Bank, *models.ImportResult, error)
	ImportBankFromJSON(ctx context.Context, raw []byte, mode models.Mode) (*models.Bank, *models.ImportResult, error)
	ImportBankFromCSV(ctx context.Context, reader io.Reader, mode models.Mode) (*models.Bank, *models.ImportResult, error)
	ImportBankFromExcel(ctx context.Context, reader io.Reader, mode models.Mode) (*models.Bank, *models.ImportResult, error)

	// Export operations
	ExportBankCSV(bank *models.Bank) ([]byte, error)
	ExportBankXLSX(bank *models.Bank) ([]byte, error)
	AnswerKeyCSV(bank *models.Bank, level int) ([]byte, error)
	ExportAttemptCSV(attempt *models.Attempt) ([]byte, error)
	ExportAttemptXLSX(attempt *models.Attempt) ([]byte, error)
}

type importExportService struct {
	logger *slog.Logger
}

func NewImportExportService(logger *slog.Logger) ImportExportService {
	return &importExportService{logger: logger}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportBankFromFile(ctx context.Context, file multipart.File, filename string, mode models.Mode) (*models.Bank, *models.ImportResult, error) {
	s.logger.Info("Starting bank import", "filename", filename, "mode", mode)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		raw, err := io.ReadAll(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file: %w", err)
		}
		return s.ImportBankFromJSON(ctx, raw, mode)
	case ".csv":
		return s.ImportBankFromCSV(ctx, file, mode)
	case ".xlsx", ".xls":
		return s.ImportBankFromExcel(ctx, file, mode)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFileFormat, ext)
	}
}

func (s *importExportService) ImportBankFromJSON(ctx context.Context, raw []byte, mode models.Mode) (*models.Bank, *models.ImportResult, error) {
	bank := &models.Bank{Mode: mode}

	switch mode {
	case models.ModeLogic:
		questions, err := normalizer.NormalizeLogicJSON(raw)
		if err != nil {
			return nil, nil, err
		}
		bank.Logic = questions
	case models.ModeEnglish:
		leveled, err := normalizer.NormalizeEnglishJSON(raw)
		if err != nil {
			return nil, nil, err
		}
		bank.English = leveled
	default:
		return nil, nil, ErrInvalidMode
	}

	return bank, s.newResult(bank, "json"), nil
}

func (s *importExportService) ImportBankFromCSV(ctx context.Context, reader io.Reader, mode models.Mode) (*models.Bank, *models.ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	bank, err := normalizer.NormalizeRows(rows, mode)
	if err != nil {
		return nil, nil, err
	}
	return bank, s.newResult(bank, "csv"), nil
}

func (s *importExportService) ImportBankFromExcel(ctx context.Context, reader io.Reader, mode models.Mode) (*models.Bank, *models.ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrImportBadShape)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}

	bank, err := normalizer.NormalizeRows(rows, mode)
	if err != nil {
		return nil, nil, err
	}
	return bank, s.newResult(bank, "xlsx"), nil
}

func (s *importExportService) newResult(bank *models.Bank, fileType string) *models.ImportResult {
	count := bank.Size()
	return &models.ImportResult{
		JobID:        uuid.NewString(),
		Mode:         bank.Mode,
		FileType:     fileType,
		TotalRows:    count,
		SuccessCount: count,
		Status:       models.ImportCompleted,
	}
}

// ===== EXPORT OPERATIONS =====

const choiceJoin = "||"

// bankTable renders the bank in its canonical tabular layout.
func bankTable(bank *models.Bank) models.ExportTable {
	if bank.Mode == models.ModeEnglish {
		rows := [][]string{{"level", "id", "type", "text", "choices", "answer"}}
		for level, questions := range bank.English {
			for _, q := range questions {
				rows = append(rows, []string{
					level, q.ID, string(q.Type), q.Text,
					strings.Join(q.Choices, choiceJoin),
					answerCell(&q),
				})
			}
		}
		return models.ExportTable{Name: "EnglishBank", Rows: rows}
	}

	rows := [][]string{{"id", "category", "type", "text", "choices", "answer", "difficulty"}}
	for _, q := range bank.Logic {
		difficulty := q.Difficulty
		if difficulty == 0 {
			difficulty = models.DifficultyEasy
		}
		rows = append(rows, []string{
			q.ID, q.Category, string(q.Type), q.Text,
			strings.Join(q.Choices, choiceJoin),
			answerCell(&q),
			strconv.Itoa(difficulty),
		})
	}
	return models.ExportTable{Name: "LogicBank", Rows: rows}
}

// answerCell renders the answer index, empty for open questions and
// for mcq questions with no recorded answer.
func answerCell(q *models.Question) string {
	if q.Type != models.MultipleChoice || q.Answer == nil {
		return ""
	}
	return strconv.Itoa(*q.Answer)
}

func (s *importExportService) ExportBankCSV(bank *models.Bank) ([]byte, error) {
	return writeCSV(bankTable(bank).Rows)
}

func (s *importExportService) ExportBankXLSX(bank *models.Bank) ([]byte, error) {
	return writeXLSX([]models.ExportTable{bankTable(bank)})
}

// AnswerKeyCSV exports the correct answers for the Logic bank, or for
// one English level.
func (s *importExportService) AnswerKeyCSV(bank *models.Bank, level int) ([]byte, error) {
	rows := [][]string{{"ID", "Category/Level", "Type", "Correct (index)", "Correct (text)"}}

	source := bank.Logic
	bucket := func(q *models.Question) string { return q.Category }
	if bank.Mode == models.ModeEnglish {
		source = bank.LevelQuestions(level)
		bucket = func(*models.Question) string { return fmt.Sprintf("Level %d", level) }
	}

	for i := range source {
		q := &source[i]
		rows = append(rows, []string{
			q.ID, bucket(q), string(q.Type), answerCell(q), q.CorrectText(),
		})
	}
	return writeCSV(rows)
}

// attemptTables renders the results export: a summary table and the
// per-item answer table.
func attemptTables(attempt *models.Attempt) []models.ExportTable {
	summary := [][]string{
		{"Attempt ID", attempt.ID},
		{"Mode", modeLabel(attempt)},
		{"Name", attempt.CandidateName},
		{"Position", attempt.CandidatePosition},
		{"Started", attempt.StartedAt.Format("2006-01-02T15:04:05Z07:00")},
	}
	if attempt.SubmittedAt != nil {
		summary = append(summary, []string{"Submitted", attempt.SubmittedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	if attempt.Score != nil {
		summary = append(summary, []string{"Score %", strconv.Itoa(attempt.Score.FinalPercent)})
		if attempt.Score.Raw != nil {
			summary = append(summary, []string{"Raw", fmt.Sprintf("%d/%d", attempt.Score.Raw.Correct, attempt.Score.Raw.Total)})
		}
	}

	items := [][]string{{"#", "Question ID", "Bucket", "Type", "Question", "Your Answer", "Correct Answer", "Is Correct", "Flagged", "Feedback"}}
	for i := range attempt.Items {
		it := &attempt.Items[i]
		q := &it.Question

		bucket := q.Category
		if attempt.Mode == models.ModeEnglish && attempt.Level != nil {
			bucket = fmt.Sprintf("Level %d", *attempt.Level)
		}

		your := it.OpenText
		correct, isCorrect := "", ""
		if q.Type == models.MultipleChoice {
			your = ""
			if it.AnswerIndex != nil && *it.AnswerIndex >= 0 && *it.AnswerIndex < len(q.Choices) {
				your = q.Choices[*it.AnswerIndex]
			}
			correct = q.CorrectText()
			isCorrect = "NO"
			if q.IsCorrect(it.AnswerIndex) {
				isCorrect = "YES"
			}
		}

		flagged := "NO"
		if it.Flagged {
			flagged = "YES"
		}

		items = append(items, []string{
			strconv.Itoa(i + 1), q.ID, bucket, string(q.Type),
			flattenNewlines(q.Text), flattenNewlines(your),
			correct, isCorrect, flagged, it.Feedback,
		})
	}

	return []models.ExportTable{
		{Name: "Summary", Rows: summary},
		{Name: "Answers", Rows: items},
	}
}

func (s *importExportService) ExportAttemptCSV(attempt *models.Attempt) ([]byte, error) {
	tables := attemptTables(attempt)
	var rows [][]string
	rows = append(rows, tables[0].Rows...)
	rows = append(rows, []string{}) // blank separator row
	rows = append(rows, tables[1].Rows...)
	return writeCSV(rows)
}

func (s *importExportService) ExportAttemptXLSX(attempt *models.Attempt) ([]byte, error) {
	return writeXLSX(attemptTables(attempt))
}

func modeLabel(attempt *models.Attempt) string {
	if attempt.Level != nil {
		return fmt.Sprintf("%s L%d", attempt.Mode, *attempt.Level)
	}
	return string(attempt.Mode)
}

func flattenNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// ===== WRITERS =====

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range rows {
		// encoding/csv rejects zero-field records; render separators as
		// one empty cell
		if len(row) == 0 {
			row = []string{""}
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeXLSX renders one sheet per table. Sheet names are capped at the
// 31 characters excel allows.
func writeXLSX(tables []models.ExportTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		name := table.Name
		if len(name) > 31 {
			name = name[:31]
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, err
			}
		}
		for r, row := range table.Rows {
			cellRef, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cellRef, &row); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
