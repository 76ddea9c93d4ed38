// Package legacyimport loads the historical CSV export of the repair desk.
// Rows are written through the store without validation; whatever drift they
// carry is left for diagnostics to report.
package legacyimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/service"
	"github.com/repairdesk/repair-service/internal/store"
)

// File names inside the import directory.
const (
	UsersFile    = "inputDataUsers.csv"
	RequestsFile = "inputDataRequests.csv"
	CommentsFile = "inputDataComments.csv"
)

// Options controls an import run.
type Options struct {
	Dir string
	// SkipPartSplit keeps repair parts as legacy text only.
	SkipPartSplit bool
	BcryptCost    int
}

// Result counts what a run wrote.
type Result struct {
	Users      int `json:"users"`
	Requests   int `json:"requests"`
	Comments   int `json:"comments"`
	PartLinks  int `json:"part_links"`
	SkippedRow int `json:"skipped_rows"`
}

// Importer loads the three legacy files in one transaction.
type Importer struct {
	store      store.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// Dependencies bundles collaborators for Importer.
type Dependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// New constructs an Importer.
func New(deps Dependencies) *Importer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: deps.Store, dispatcher: deps.Dispatcher, logger: logger}
}

// Run imports users, requests and comments from opts.Dir. Rows with an id
// already present are overwritten; a run is all-or-nothing.
func (im *Importer) Run(ctx context.Context, opts Options) (Result, error) {
	users, err := readFile(filepath.Join(opts.Dir, UsersFile))
	if err != nil {
		return Result{}, err
	}
	requests, err := readFile(filepath.Join(opts.Dir, RequestsFile))
	if err != nil {
		return Result{}, err
	}
	comments, err := readFile(filepath.Join(opts.Dir, CommentsFile))
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = im.store.RunInTransaction(ctx, func(tx store.Tx) error {
		res = Result{}
		run := &importRun{tx: tx, opts: opts, res: &res, logger: im.logger}
		if err := service.SeedReference(ctx, tx); err != nil {
			return err
		}
		if err := run.users(ctx, users); err != nil {
			return err
		}
		if err := run.requests(ctx, requests); err != nil {
			return err
		}
		return run.comments(ctx, comments)
	})
	if err != nil {
		return Result{}, err
	}

	im.logger.Info("legacy import finished",
		zap.Int("users", res.Users),
		zap.Int("requests", res.Requests),
		zap.Int("comments", res.Comments),
		zap.Int("part_links", res.PartLinks),
		zap.Int("skipped_rows", res.SkippedRow))
	if im.dispatcher != nil {
		_ = im.dispatcher.Publish(ctx, events.Event{
			Type:    events.EventReferenceChanged,
			Payload: events.ReferenceChangedPayload{Source: "legacy_import"},
		})
	}
	return res, nil
}

type record map[string]string

func (r record) get(key string) string { return strings.TrimSpace(r[key]) }

// readFile parses a ';'-delimited file with a header row.
func readFile(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(header[i]), "\ufeff")
	}

	var out []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec := make(record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			}
		}
		out = append(out, rec)
	}
}

type importRun struct {
	tx     store.Tx
	opts   Options
	res    *Result
	logger *zap.Logger
	links  map[[2]int64]bool
}

func (r *importRun) skip(file string, line int, reason string) {
	r.res.SkippedRow++
	r.logger.Warn("legacy row skipped", zap.String("file", file), zap.Int("row", line), zap.String("reason", reason))
}

func (r *importRun) users(ctx context.Context, rows []record) error {
	cost := r.opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	for i, row := range rows {
		id, ok := parseInt(row.get("userID"))
		fio, phone, login, password := row.get("fio"), row.get("phone"), row.get("login"), row.get("password")
		roleName := domain.RoleName(row.get("type"))
		if !ok || fio == "" || phone == "" || login == "" || password == "" || roleName == "" {
			r.skip(UsersFile, i+2, "missing field")
			continue
		}
		role, err := r.tx.FindRoleByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("%s row %d: role %q: %w", UsersFile, i+2, roleName, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return err
		}
		user := domain.AppUser{ID: id, FIO: fio, Phone: phone, Login: login, PasswordHash: string(hash), RoleID: role.ID}
		if err := r.upsertUser(ctx, &user); err != nil {
			return fmt.Errorf("%s row %d: %w", UsersFile, i+2, err)
		}
		r.res.Users++
	}
	return nil
}

func (r *importRun) upsertUser(ctx context.Context, user *domain.AppUser) error {
	_, err := r.tx.FindUser(ctx, user.ID)
	switch {
	case err == nil:
		return r.tx.UpdateUser(ctx, user)
	case errors.Is(err, store.ErrNotFound):
		return r.tx.InsertUser(ctx, user)
	default:
		return err
	}
}

func (r *importRun) requests(ctx context.Context, rows []record) error {
	existing, err := r.tx.ListRequestSpareParts(ctx)
	if err != nil {
		return err
	}
	r.links = make(map[[2]int64]bool, len(existing))
	for _, l := range existing {
		r.links[[2]int64{l.RequestID, l.SparePartID}] = true
	}

	for i, row := range rows {
		line := i + 2
		id, idOK := parseInt(row.get("requestID"))
		start := parseDate(row.get("startDate"))
		typeName, modelName := row.get("homeTechType"), row.get("homeTechModel")
		problem, statusName := row.get("problemDescryption"), row.get("requestStatus")
		clientID, clientOK := parseInt(row.get("clientID"))
		if !idOK || start == nil || typeName == "" || modelName == "" || problem == "" || statusName == "" || !clientOK {
			r.skip(RequestsFile, line, "missing field")
			continue
		}

		et, err := service.GetOrCreateEquipmentType(ctx, r.tx, typeName)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", RequestsFile, line, err)
		}
		model, err := service.GetOrCreateEquipmentModel(ctx, r.tx, et.ID, modelName)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", RequestsFile, line, err)
		}
		issue, err := service.GetOrCreateIssueType(ctx, r.tx, problem)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", RequestsFile, line, err)
		}
		status, err := r.tx.FindStatusByName(ctx, statusName)
		if err != nil {
			return fmt.Errorf("%s row %d: status %q: %w", RequestsFile, line, statusName, err)
		}

		req := domain.RepairRequest{
			ID:                 id,
			StartDate:          *start,
			EquipmentModelID:   model.ID,
			IssueTypeID:        issue.ID,
			ProblemDescription: problem,
			StatusID:           status.ID,
			CompletionDate:     parseDate(row.get("completionDate")),
			ClientID:           clientID,
		}
		if parts := row.get("repairParts"); parts != "" {
			req.RepairPartsLegacy = &parts
		}
		if masterID, ok := parseInt(row.get("masterID")); ok {
			if _, err := r.tx.FindUser(ctx, masterID); err == nil {
				req.MasterID = &masterID
			}
		}
		if err := r.upsertRequest(ctx, &req); err != nil {
			return fmt.Errorf("%s row %d: %w", RequestsFile, line, err)
		}
		r.res.Requests++

		if r.opts.SkipPartSplit || req.RepairPartsLegacy == nil {
			continue
		}
		if err := r.linkParts(ctx, req.ID, *req.RepairPartsLegacy); err != nil {
			return fmt.Errorf("%s row %d: %w", RequestsFile, line, err)
		}
	}
	return nil
}

func (r *importRun) upsertRequest(ctx context.Context, req *domain.RepairRequest) error {
	prev, err := r.tx.FindRepairRequest(ctx, req.ID)
	switch {
	case err == nil:
		req.CreatedAt = prev.CreatedAt
		req.DueDate = prev.DueDate
		return r.tx.UpdateRepairRequest(ctx, req)
	case errors.Is(err, store.ErrNotFound):
		return r.tx.InsertRepairRequest(ctx, req)
	default:
		return err
	}
}

func (r *importRun) linkParts(ctx context.Context, requestID int64, raw string) error {
	for _, name := range SplitParts(raw) {
		part, err := service.GetOrCreateSparePart(ctx, r.tx, name)
		if err != nil {
			return err
		}
		key := [2]int64{requestID, part.ID}
		if r.links[key] {
			continue
		}
		if err := r.tx.InsertRequestSparePart(ctx, &domain.RequestSparePart{RequestID: requestID, SparePartID: part.ID, Quantity: 1}); err != nil {
			return err
		}
		r.links[key] = true
		r.res.PartLinks++
	}
	return nil
}

func (r *importRun) comments(ctx context.Context, rows []record) error {
	existing, err := r.tx.ListComments(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]bool, len(existing))
	for _, c := range existing {
		seen[c.ID] = true
	}
	for i, row := range rows {
		id, idOK := parseInt(row.get("commentID"))
		message := row.get("message")
		masterID, masterOK := parseInt(row.get("masterID"))
		requestID, requestOK := parseInt(row.get("requestID"))
		if !idOK || message == "" || !masterOK || !requestOK {
			r.skip(CommentsFile, i+2, "missing field")
			continue
		}
		if seen[id] {
			r.skip(CommentsFile, i+2, "comment already imported")
			continue
		}
		comment := domain.RequestComment{ID: id, RequestID: requestID, MasterID: masterID, Message: message}
		if err := r.tx.InsertComment(ctx, &comment); err != nil {
			return fmt.Errorf("%s row %d: %w", CommentsFile, i+2, err)
		}
		seen[id] = true
		r.res.Comments++
	}
	return nil
}

// SplitParts splits legacy parts text on newlines, or on ';' when the text
// is a single line.
func SplitParts(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var chunks []string
	switch {
	case strings.Contains(raw, "\n"):
		chunks = strings.Split(raw, "\n")
	case strings.Contains(raw, ";"):
		chunks = strings.Split(raw, ";")
	default:
		return []string{raw}
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func parseInt(s string) (int64, bool) {
	if s == "" || strings.EqualFold(s, "null") {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseDate(s string) *time.Time {
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
