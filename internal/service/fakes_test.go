package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
	"github.com/papergrade/papergrade-api/pkg/ai"
)

func floatPtr(v float64) *float64 {
	return &v
}

var (
	errInvalidKey = errors.New("invalid api key")
	errFetchDown  = errors.New("storage unreachable")
)

type fakeSheetRepo struct {
	mu        sync.Mutex
	sheets    map[uint]models.AnswerSheet
	updates   []models.AnswerSheet
	nextID    uint
	updateErr error
}

func newFakeSheetRepo(sheets ...models.AnswerSheet) *fakeSheetRepo {
	repo := &fakeSheetRepo{sheets: map[uint]models.AnswerSheet{}}
	for _, sheet := range sheets {
		repo.sheets[sheet.ID] = sheet
		if sheet.ID > repo.nextID {
			repo.nextID = sheet.ID
		}
	}
	return repo
}

func (f *fakeSheetRepo) List(_ context.Context, filter repository.AnswerSheetFilter) ([]models.AnswerSheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AnswerSheet
	for _, sheet := range f.sheets {
		if filter.ExamID != nil && sheet.ExamID != *filter.ExamID {
			continue
		}
		if filter.Status != nil && sheet.Status != *filter.Status {
			continue
		}
		out = append(out, sheet)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSheetRepo) GetByID(_ context.Context, id uint) (models.AnswerSheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sheet, ok := f.sheets[id]
	if !ok {
		return models.AnswerSheet{}, gorm.ErrRecordNotFound
	}
	return sheet, nil
}

func (f *fakeSheetRepo) Create(_ context.Context, sheet *models.AnswerSheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sheet.ID = f.nextID
	f.sheets[sheet.ID] = *sheet
	return nil
}

func (f *fakeSheetRepo) Update(_ context.Context, sheet *models.AnswerSheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	f.sheets[sheet.ID] = *sheet
	f.updates = append(f.updates, *sheet)
	return nil
}

func (f *fakeSheetRepo) statuses() []models.SheetStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.SheetStatus, 0, len(f.updates))
	for _, update := range f.updates {
		out = append(out, update.Status)
	}
	return out
}

type fakeExamRepo struct {
	exams map[uint]models.Exam
}

func newFakeExamRepo(exams ...models.Exam) *fakeExamRepo {
	repo := &fakeExamRepo{exams: map[uint]models.Exam{}}
	for _, exam := range exams {
		repo.exams[exam.ID] = exam
	}
	return repo
}

func (f *fakeExamRepo) List(context.Context) ([]models.Exam, error) {
	var out []models.Exam
	for _, exam := range f.exams {
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeExamRepo) GetByID(_ context.Context, id uint) (models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return models.Exam{}, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (f *fakeExamRepo) Create(_ context.Context, exam *models.Exam) error {
	exam.ID = uint(len(f.exams) + 1)
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Update(_ context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = *exam
	return nil
}

type fakeLogRepo struct {
	entries   []models.ReEvaluationLog
	createErr error
}

func (f *fakeLogRepo) Create(_ context.Context, entry *models.ReEvaluationLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) ListBySheet(_ context.Context, sheetID uint) ([]models.ReEvaluationLog, error) {
	var out []models.ReEvaluationLog
	for _, entry := range f.entries {
		if entry.AnswerSheetID == sheetID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type invocation struct {
	prompt      string
	attachments []ai.Attachment
}

type fakeInvoker struct {
	reply string
	err   error
	calls []invocation
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string, attachments []ai.Attachment) (string, error) {
	f.calls = append(f.calls, invocation{prompt: prompt, attachments: attachments})
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeDocument struct {
	data []byte
	mime string
}

type fakeFetcher struct {
	docs map[string]fakeDocument
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	doc, ok := f.docs[rawURL]
	if !ok {
		return nil, "", errors.New("document not found: " + rawURL)
	}
	return doc.data, doc.mime, nil
}

type fakeUploader struct {
	url   string
	err   error
	names []string
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeGrader struct {
	responses map[uint]dto.AnswerSheetResponse
	errs      map[uint]error
	calls     []uint
	onCall    func(sheetID uint)
}

func (f *fakeGrader) Grade(_ context.Context, sheetID uint, _ dto.GradeRequest) (dto.AnswerSheetResponse, error) {
	f.calls = append(f.calls, sheetID)
	if f.onCall != nil {
		f.onCall(sheetID)
	}
	if err, ok := f.errs[sheetID]; ok {
		return dto.AnswerSheetResponse{}, err
	}
	return f.responses[sheetID], nil
}

func (f *fakeGrader) ListReEvaluations(context.Context, uint) ([]dto.ReEvaluationLogResponse, error) {
	return nil, nil
}
