package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service"
)

// QuizHandler обрабатывает HTTP-запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
	liveQuiz    *service.LiveQuizService
}

// NewQuizHandler создает обработчик викторин
func NewQuizHandler(
	quizService *service.QuizService,
	liveQuiz *service.LiveQuizService,
) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		liveQuiz:    liveQuiz,
	}
}

// CreateQuizRequest представляет запрос на создание викторины
type CreateQuizRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=100"`
	Description     string     `json:"description" binding:"omitempty,max=500"`
	StartTime       *time.Time `json:"start_time"` // nil — только ручной запуск
	QuestionTimeSec int        `json:"question_time_sec" binding:"omitempty,min=5,max=60"`
}

// CreateQuiz обрабатывает запрос на создание черновика викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(req.Title, req.Description, req.StartTime, req.QuestionTimeSec)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// AddQuestionsRequest представляет запрос на добавление вопросов
type AddQuestionsRequest struct {
	Questions []struct {
		Text          string   `json:"text" binding:"required,min=3,max=500"`
		Options       []string `json:"options" binding:"required,min=2,max=5"`
		CorrectOption int      `json:"correct_option" binding:"min=0"`
		ImageURL      string   `json:"image_url" binding:"omitempty,max=255"`
		Marks         int      `json:"marks" binding:"omitempty,min=1,max=100"`
	} `json:"questions" binding:"required,min=1"`
}

// AddQuestions обрабатывает запрос на добавление вопросов в черновик
func (h *QuizHandler) AddQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = entity.Question{
			Text:          q.Text,
			Options:       entity.StringArray(q.Options),
			CorrectOption: q.CorrectOption,
			ImageURL:      q.ImageURL,
			Marks:         q.Marks,
		}
	}

	if err := h.quizService.AddQuestions(quizID, questions); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Questions added successfully",
		"count":   len(questions),
	})
}

// GetQuiz возвращает викторину с вопросами в порядке показа.
// Правильные варианты в JSON не сериализуются.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuizWithQuestions(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes возвращает страницу викторин
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	quizzes, err := h.quizService.ListQuizzes(limit, offset)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes, "count": len(quizzes)})
}

// GetActiveQuiz возвращает идущую викторину
func (h *QuizHandler) GetActiveQuiz(c *gin.Context) {
	quiz, err := h.liveQuiz.GetActiveQuiz()
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// StartQuiz запускает викторину вручную, опережая планировщик
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.liveQuiz.StartQuiz(quizID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quiz started",
		"quiz_id": quizID,
	})
}

// GetQuizState возвращает снимок текущего состояния викторины
func (h *QuizHandler) GetQuizState(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	snapshot, err := h.liveQuiz.GetCurrentState(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// DeleteQuiz удаляет черновик викторины
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.quizService.DeleteQuiz(quizID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

// GetLeaderboard возвращает таблицу лидеров викторины
func (h *QuizHandler) GetLeaderboard(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.liveQuiz.GetLeaderboard(quizID, limit)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_id": quizID,
		"entries": entries,
		"count":   len(entries),
	})
}

// ExportLeaderboard экспортирует таблицу лидеров в CSV или XLSX
func (h *QuizHandler) ExportLeaderboard(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	format := c.DefaultQuery("format", "csv")

	// Вся таблица без пагинации для экспорта
	entries, err := h.liveQuiz.GetLeaderboard(quizID, 0)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_%d_leaderboard_%s", quizID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, entries, filename)
	default:
		h.exportCSV(c, entries, filename)
	}
}

// exportCSV экспортирует таблицу лидеров в CSV с правильным экранированием спецсимволов
func (h *QuizHandler) exportCSV(c *gin.Context, entries []entity.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// encoding/csv экранирует запятые и кавычки
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Место", "Пользователь", "Очки"})

	for _, e := range entries {
		writer.Write([]string{
			strconv.Itoa(e.Rank),
			sanitizeForExcel(e.Username),
			strconv.Itoa(e.TotalScore),
		})
	}
}

// exportXLSX экспортирует таблицу лидеров в Excel с использованием StreamWriter
func (h *QuizHandler) exportXLSX(c *gin.Context, entries []entity.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Лидеры"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Пользователь", "Очки"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuizHandler] Ошибка записи заголовков: %v", err)
	}

	for i, e := range entries {
		rowNum := i + 2 // Первая строка — заголовки
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{e.Rank, sanitizeForExcel(e.Username), e.TotalScore}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[QuizHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuizHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuizHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleQuizError обрабатывает ошибки сервисов и отправляет соответствующий HTTP ответ
func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
