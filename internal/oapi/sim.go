package oapi

// sim.go implements Simulator, an in-memory stand-in for the external
// application.
//
// The simulator keeps the same process-global state the real application
// does: one present unit system that every read is expressed in, and one
// staging area that accumulates SetTableForEditingArray calls until
// ApplyEditedTables or CancelTableEditing. Values are stored in the
// database unit system and converted on the way in and out, so reading the
// same table under different present units yields different numbers.

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// ErrClosed is returned by Invoke after Close.
var ErrClosed = errors.New("automation handle closed")

// Import types reported by table listings.
const (
	ImportNone             = 0
	ImportBatchOnly        = 1
	ImportUnlocked         = 2
	ImportLockedOrUnlocked = 3
)

// SimField describes one column of a simulated table.
type SimField struct {
	Key         string
	Name        string
	Description string
	Units       string
	Importable  bool
	// Dim is the physical dimension of numeric cells; zero for text and
	// dimensionless numbers.
	Dim Dimension
}

// SimTable is one simulated database table. Records hold cells in the
// simulator's database units, one string per field.
type SimTable struct {
	Key        string
	Name       string
	ImportType int
	Fields     []SimField
	Records    [][]string
}

func (t *SimTable) field(key string) (int, bool) {
	for i, f := range t.Fields {
		if f.Key == key {
			return i, true
		}
	}
	return -1, false
}

// Fault makes the next call of a method misbehave. The first non-zero
// member wins, in the order Result, Panic, Err, Status.
type Fault struct {
	Result any
	Panic  any
	Err    error
	Status int
}

// Call is one recorded Invoke.
type Call struct {
	Method Method
	Args   []any
}

// tupleArity is the number of non-status elements each tuple-shaped method
// returns. Methods absent here return a scalar.
var tupleArity = map[Method]int{
	GetAllTables:            5,
	GetAvailableTables:      4,
	GetAllFieldsInTable:     7,
	GetTableForDisplayArray: 5,
	SetTableForEditingArray: 3,
	ApplyEditedTables:       5,
	GetVersion:              2,
	GetMergeTol:             1,
	GetProjectInfo:          3,
	GetUserComment:          1,
}

// Simulator is an in-memory Automation. It is safe for concurrent use, but
// like the real application it has a single present unit setting and a
// single staging area shared by every caller.
type Simulator struct {
	mu       sync.Mutex
	tables   []*SimTable
	present  Units
	database Units
	locked   bool
	filename string
	comment  string
	project  []ProjectItem
	mergeTol float64
	version  string
	staged   map[string][][]string
	order    []string
	faults   map[Method][]Fault
	calls    []Call
	closed   bool
}

// NewSimulator returns a simulator holding tables. Records are taken to be
// in kN_m_C; the present units start at kip_in_F.
func NewSimulator(tables []SimTable) *Simulator {
	s := &Simulator{
		present:  KipInF,
		database: KNmC,
		filename: `C:\Models\Simulated.sdb`,
		mergeTol: 0.001,
		version:  "24.0.0",
		staged:   make(map[string][][]string),
		faults:   make(map[Method][]Fault),
	}
	for i := range tables {
		t := tables[i]
		t.Fields = append([]SimField(nil), t.Fields...)
		t.Records = cloneRecords(t.Records)
		s.tables = append(s.tables, &t)
	}
	return s
}

// Inject queues a fault for the next call of method.
func (s *Simulator) Inject(method Method, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = append(s.faults[method], f)
}

// Calls returns every call made so far.
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// PresentUnits returns the current present unit system.
func (s *Simulator) PresentUnits() Units {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present
}

// SetLocked sets the model lock without going through Invoke.
func (s *Simulator) SetLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = locked
}

// Staged returns the keys of tables with staged edits, in staging order.
func (s *Simulator) Staged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Records returns a copy of a table's stored records in database units.
func (s *Simulator) Records(key string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(key)
	if t == nil {
		return nil
	}
	return cloneRecords(t.Records)
}

// Close implements Automation.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Invoke implements Automation.
func (s *Simulator) Invoke(ctx context.Context, method Method, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	s.calls = append(s.calls, Call{Method: method, Args: append([]any(nil), args...)})

	if queue := s.faults[method]; len(queue) > 0 {
		f := queue[0]
		s.faults[method] = queue[1:]
		switch {
		case f.Result != nil:
			return f.Result, nil
		case f.Panic != nil:
			panic(f.Panic)
		case f.Err != nil:
			return nil, f.Err
		case f.Status != 0:
			return failed(method, f.Status), nil
		}
	}

	switch method {
	case GetAllTables:
		return s.listTables(true), nil
	case GetAvailableTables:
		return s.listTables(false), nil
	case GetAllFieldsInTable:
		return s.fields(arg(args, 0)), nil
	case GetTableForDisplayArray:
		return s.display(arg(args, 0), arg(args, 1)), nil
	case SetTableForEditingArray:
		return s.stage(method, args), nil
	case ApplyEditedTables:
		return s.apply(cast.ToBool(arg(args, 0))), nil
	case CancelTableEditing:
		s.staged = make(map[string][][]string)
		s.order = nil
		return 0, nil
	case GetPresentUnits:
		return int(s.present), nil
	case SetPresentUnits:
		u := Units(cast.ToInt(arg(args, 0)))
		if !u.Valid() {
			return 1, nil
		}
		s.present = u
		return 0, nil
	case GetDatabaseUnits:
		return int(s.database), nil
	case GetModelIsLocked:
		return s.locked, nil
	case SetModelIsLocked:
		s.locked = cast.ToBool(arg(args, 0))
		return 0, nil
	case GetModelFilename:
		if len(args) > 0 && !cast.ToBool(args[0]) {
			return filepath.Base(strings.ReplaceAll(s.filename, `\`, "/")), nil
		}
		return s.filename, nil
	case FileSave:
		if p := cast.ToString(arg(args, 0)); p != "" {
			s.filename = p
		}
		if s.filename == "" {
			return 1, nil
		}
		return 0, nil
	case GetVersion:
		v, _ := strconv.ParseFloat(strings.SplitN(s.version, ".", 2)[0], 64)
		return []any{s.version, v, 0}, nil
	case GetOAPIVersionNumber:
		v, _ := strconv.ParseFloat(strings.SplitN(s.version, ".", 2)[0], 64)
		return v, nil
	case GetMergeTol:
		return []any{s.mergeTol, 0}, nil
	case SetMergeTol:
		tol, err := cast.ToFloat64E(arg(args, 0))
		if err != nil || tol < 0 {
			return 1, nil
		}
		s.mergeTol = tol
		return 0, nil
	case GetProjectInfo:
		items := make([]string, len(s.project))
		data := make([]string, len(s.project))
		for i, p := range s.project {
			items[i], data[i] = p.Item, p.Data
		}
		return []any{len(s.project), items, data, 0}, nil
	case SetProjectInfo:
		return s.setProjectInfo(cast.ToString(arg(args, 0)), cast.ToString(arg(args, 1))), nil
	case GetUserComment:
		return []any{s.comment, 0}, nil
	case SetUserComment:
		comment := cast.ToString(arg(args, 0))
		if len(args) > 2 && !cast.ToBool(args[2]) && s.comment != "" {
			comment = s.comment + "\n" + comment
		}
		s.comment = comment
		return 0, nil
	case RefreshView:
		return 0, nil
	}
	return nil, fmt.Errorf("simulator: unsupported method %s", method)
}

func (s *Simulator) listTables(all bool) []any {
	var keys, names []string
	var imports []int
	var empty []bool
	for _, t := range s.tables {
		if !all && !s.available(t) {
			continue
		}
		keys = append(keys, t.Key)
		names = append(names, t.Name)
		imports = append(imports, t.ImportType)
		empty = append(empty, len(t.Records) == 0)
	}
	if all {
		return []any{len(keys), keys, names, imports, empty, 0}
	}
	return []any{len(keys), keys, names, imports, 0}
}

// available reports whether t can be imported interactively in the current
// lock state.
func (s *Simulator) available(t *SimTable) bool {
	switch t.ImportType {
	case ImportLockedOrUnlocked:
		return true
	case ImportUnlocked:
		return !s.locked
	}
	return false
}

func (s *Simulator) fields(key any) []any {
	t := s.table(cast.ToString(key))
	if t == nil {
		return failedTuple(GetAllFieldsInTable, 1)
	}
	n := len(t.Fields)
	keys, names, descs, units := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	importable := make([]bool, n)
	for i, f := range t.Fields {
		keys[i], names[i], descs[i], units[i], importable[i] = f.Key, f.Name, f.Description, f.Units, f.Importable
	}
	return []any{TableFormatVersion, n, keys, names, descs, units, importable, 0}
}

func (s *Simulator) display(key, fieldList any) []any {
	t := s.table(cast.ToString(key))
	if t == nil {
		return failedTuple(GetTableForDisplayArray, 1)
	}

	idx := make([]int, 0, len(t.Fields))
	if wanted, _ := stringSlice(fieldList); len(wanted) > 0 {
		for _, k := range wanted {
			if i, ok := t.field(k); ok {
				idx = append(idx, i)
			}
		}
	} else {
		for i := range t.Fields {
			idx = append(idx, i)
		}
	}

	headers := make([]string, len(idx))
	for j, i := range idx {
		headers[j] = t.Fields[i].Key
	}
	cells := make([]string, 0, len(idx)*len(t.Records))
	for _, rec := range t.Records {
		for _, i := range idx {
			cells = append(cells, convertCell(rec[i], t.Fields[i].Dim, s.database, s.present))
		}
	}
	return []any{fieldList, TableFormatVersion, headers, len(t.Records), cells, 0}
}

func (s *Simulator) stage(method Method, args []any) []any {
	t := s.table(cast.ToString(arg(args, 0)))
	if t == nil || cast.ToInt(arg(args, 1)) != TableFormatVersion {
		return failedTuple(method, 1)
	}
	headers, err := stringSlice(arg(args, 2))
	if err != nil || len(headers) == 0 {
		return failedTuple(method, 1)
	}
	cells, err := asSlice(arg(args, 4))
	if err != nil {
		return failedTuple(method, 1)
	}
	n := cast.ToInt(arg(args, 3))
	if n < 0 || len(cells) != n*len(headers) {
		return failedTuple(method, 1)
	}

	idx := make([]int, len(headers))
	for j, h := range headers {
		i, ok := t.field(h)
		if !ok {
			return failedTuple(method, 1)
		}
		idx[j] = i
	}

	records := make([][]string, n)
	for r := range records {
		rec := make([]string, len(t.Fields))
		for j, i := range idx {
			cell := cells[r*len(headers)+j]
			if cell == nil {
				continue
			}
			rec[i] = convertCell(cast.ToString(cell), t.Fields[i].Dim, s.present, s.database)
		}
		records[r] = rec
	}

	if _, ok := s.staged[t.Key]; !ok {
		s.order = append(s.order, t.Key)
	}
	s.staged[t.Key] = records
	return []any{TableFormatVersion, headers, cells, 0}
}

func (s *Simulator) apply(fillLog bool) []any {
	var fatal, errs, warns, info int
	var lines []string

	for _, key := range s.order {
		t := s.table(key)
		records := s.staged[key]
		switch {
		case t.ImportType == ImportNone || t.ImportType == ImportBatchOnly:
			fatal++
			lines = append(lines, fmt.Sprintf("%s: table cannot be imported interactively", t.Name))
			continue
		case s.locked && t.ImportType != ImportLockedOrUnlocked:
			fatal++
			lines = append(lines, fmt.Sprintf("%s: model is locked", t.Name))
			continue
		}

		for r, rec := range records {
			if rec[0] == "" {
				errs++
				lines = append(lines, fmt.Sprintf("%s: record %d has no %s", t.Name, r+1, t.Fields[0].Name))
			}
			for i, f := range t.Fields {
				if f.Dim.Dimensionless() || rec[i] == "" {
					continue
				}
				if _, err := strconv.ParseFloat(rec[i], 64); err != nil {
					warns++
					lines = append(lines, fmt.Sprintf("%s: record %d %s %q is not a number and was ignored", t.Name, r+1, f.Name, rec[i]))
					rec[i] = ""
				}
			}
		}
		info++
		lines = append(lines, fmt.Sprintf("%s: %d records imported", t.Name, len(records)))
	}

	if fatal == 0 && errs == 0 {
		for _, key := range s.order {
			s.table(key).Records = s.staged[key]
		}
	}
	s.staged = make(map[string][][]string)
	s.order = nil

	log := ""
	if fillLog {
		log = strings.Join(lines, "\n")
	}
	return []any{fatal, errs, warns, info, log, 0}
}

func (s *Simulator) setProjectInfo(item, data string) int {
	if item == "" {
		return 1
	}
	for i := range s.project {
		if s.project[i].Item == item {
			s.project[i].Data = data
			return 0
		}
	}
	s.project = append(s.project, ProjectItem{Item: item, Data: data})
	return 0
}

func (s *Simulator) table(key string) *SimTable {
	for _, t := range s.tables {
		if t.Key == key {
			return t
		}
	}
	return nil
}

// failed shapes a non-zero status the way method would return it.
func failed(method Method, status int) any {
	if _, ok := tupleArity[method]; !ok {
		return status
	}
	return failedTuple(method, status)
}

// failedTuple is failed for a method known to return a tuple.
func failedTuple(method Method, status int) []any {
	n := tupleArity[method]
	out := make([]any, n+1)
	out[n] = status
	return out
}

func convertCell(cell string, dim Dimension, from, to Units) string {
	if dim.Dimensionless() || cell == "" {
		return cell
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return cell
	}
	return strconv.FormatFloat(dim.Convert(v, from, to), 'f', -1, 64)
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func cloneRecords(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, rec := range in {
		out[i] = append([]string(nil), rec...)
	}
	return out
}
