//go:build windows

package oapi

// com_windows.go drives a live application through its COM automation
// server. All COM traffic happens on one goroutine locked to an OS thread,
// which owns the apartment; Invoke hands requests to it over a channel.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/spf13/cast"
	"golang.org/x/sys/windows"
)

const (
	helperProgID    = "SAP2000v1.Helper"
	sapObjectProgID = "CSI.SAP2000.API.SapObject"
)

var (
	oleaut32                  = windows.NewLazySystemDLL("oleaut32.dll")
	procSafeArrayCreateVector = oleaut32.NewProc("SafeArrayCreateVector")
	procSafeArrayPutElement   = oleaut32.NewProc("SafeArrayPutElement")
)

type param uint8

const (
	pIn param = iota
	pOut
	pInOut
)

// signature describes how a Method is reached and which of its positional
// parameters the callee writes back.
type signature struct {
	// root calls the method on the application object instead of the model.
	root   bool
	object []string
	name   string
	params []param
}

var signatures = map[Method]signature{
	GetAllTables:            {object: []string{"DatabaseTables"}, name: "GetAllTables", params: []param{pOut, pOut, pOut, pOut, pOut}},
	GetAvailableTables:      {object: []string{"DatabaseTables"}, name: "GetAvailableTables", params: []param{pOut, pOut, pOut, pOut}},
	GetAllFieldsInTable:     {object: []string{"DatabaseTables"}, name: "GetAllFieldsInTable", params: []param{pIn, pOut, pOut, pOut, pOut, pOut, pOut, pOut}},
	GetTableForDisplayArray: {object: []string{"DatabaseTables"}, name: "GetTableForDisplayArray", params: []param{pIn, pInOut, pIn, pOut, pOut, pOut, pOut}},
	SetTableForEditingArray: {object: []string{"DatabaseTables"}, name: "SetTableForEditingArray", params: []param{pIn, pInOut, pInOut, pIn, pInOut}},
	ApplyEditedTables:       {object: []string{"DatabaseTables"}, name: "ApplyEditedTables", params: []param{pIn, pOut, pOut, pOut, pOut, pOut}},
	CancelTableEditing:      {object: []string{"DatabaseTables"}, name: "CancelTableEditing"},
	GetPresentUnits:         {name: "GetPresentUnits"},
	SetPresentUnits:         {name: "SetPresentUnits", params: []param{pIn}},
	GetDatabaseUnits:        {name: "GetDatabaseUnits"},
	GetModelIsLocked:        {name: "GetModelIsLocked"},
	SetModelIsLocked:        {name: "SetModelIsLocked", params: []param{pIn}},
	GetModelFilename:        {name: "GetModelFilename", params: []param{pIn}},
	GetVersion:              {name: "GetVersion", params: []param{pOut, pOut}},
	GetMergeTol:             {name: "GetMergeTol", params: []param{pOut}},
	SetMergeTol:             {name: "SetMergeTol", params: []param{pIn}},
	GetProjectInfo:          {name: "GetProjectInfo", params: []param{pOut, pOut, pOut}},
	SetProjectInfo:          {name: "SetProjectInfo", params: []param{pIn, pIn}},
	GetUserComment:          {name: "GetUserComment", params: []param{pOut}},
	SetUserComment:          {name: "SetUserComment", params: []param{pIn, pIn, pIn}},
	FileSave:                {object: []string{"File"}, name: "Save", params: []param{pIn}},
	RefreshView:             {object: []string{"View"}, name: "RefreshView", params: []param{pIn, pIn}},
	GetOAPIVersionNumber:    {root: true, name: "GetOAPIVersionNumber"},
}

type comRequest struct {
	method Method
	args   []any
	reply  chan comReply
}

type comReply struct {
	raw any
	err error
}

type comAutomation struct {
	requests  chan comRequest
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func dialCOM(ctx context.Context, opts Options) (Automation, error) {
	c := &comAutomation{
		requests: make(chan comRequest),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	ready := make(chan error, 1)
	go c.loop(opts, ready)

	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// Invoke implements Automation.
func (c *comAutomation) Invoke(ctx context.Context, method Method, args ...any) (any, error) {
	req := comRequest{method: method, args: args, reply: make(chan comReply, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Once dispatched the call cannot be abandoned: the application keeps
	// running it regardless, so wait for the reply.
	reply := <-req.reply
	return reply.raw, reply.err
}

// Close implements Automation. A started instance is shut down; an
// attached one is left running. Close returns once the apartment is torn
// down.
func (c *comAutomation) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.stopped
	return nil
}

func (c *comAutomation) loop(opts Options, ready chan<- error) {
	defer close(c.stopped)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		ready <- fmt.Errorf("com initialize: %w", err)
		return
	}
	defer ole.CoUninitialize()

	app, err := connect(opts)
	if err != nil {
		ready <- err
		return
	}
	defer app.Release()

	modelVar, err := oleutil.GetProperty(app, "SapModel")
	if err != nil {
		ready <- fmt.Errorf("com model object: %w", err)
		return
	}
	model := modelVar.ToIDispatch()
	defer model.Release()

	if !opts.Attach {
		if _, err := oleutil.CallMethod(model, "InitializeNewModel"); err != nil {
			ready <- fmt.Errorf("com initialize model: %w", err)
			return
		}
	}
	ready <- nil

	c.serve(func(method Method, args []any) (any, error) {
		return dispatch(app, model, method, args)
	}, func() {
		if !opts.Attach {
			oleutil.CallMethod(app, "ApplicationExit", false)
		}
	})
}

// serve answers requests with call until Close, then runs exit.
func (c *comAutomation) serve(call func(Method, []any) (any, error), exit func()) {
	for {
		select {
		case req := <-c.requests:
			raw, err := call(req.method, req.args)
			req.reply <- comReply{raw: raw, err: err}
		case <-c.done:
			exit()
			return
		}
	}
}

func connect(opts Options) (*ole.IDispatch, error) {
	unknown, err := oleutil.CreateObject(helperProgID)
	if err != nil {
		return nil, fmt.Errorf("com helper: %w", err)
	}
	helper, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return nil, fmt.Errorf("com helper dispatch: %w", err)
	}
	defer helper.Release()

	if opts.Attach {
		v, err := oleutil.CallMethod(helper, "GetObject", sapObjectProgID)
		if err != nil {
			return nil, fmt.Errorf("no running instance of the program found: %w", err)
		}
		return v.ToIDispatch(), nil
	}

	path := opts.ProgramPath
	if path == "" {
		for _, candidate := range KnownProgramPaths {
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return nil, errors.New("program executable not found; set a program path")
	}

	v, err := oleutil.CallMethod(helper, "CreateObject", path)
	if err != nil {
		return nil, fmt.Errorf("cannot start a new instance of %s: %w", path, err)
	}
	app := v.ToIDispatch()
	if _, err := oleutil.CallMethod(app, "ApplicationStart"); err != nil {
		app.Release()
		return nil, fmt.Errorf("application start: %w", err)
	}
	return app, nil
}

func dispatch(app, model *ole.IDispatch, method Method, args []any) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("com %s: %v", method, r)
		}
	}()

	sig, ok := signatures[method]
	if !ok {
		return nil, fmt.Errorf("com: no signature for %s", method)
	}

	target := model
	if sig.root {
		target = app
	}
	for _, name := range sig.object {
		v, err := oleutil.GetProperty(target, name)
		if err != nil {
			return nil, fmt.Errorf("com %s: %w", method, err)
		}
		next := v.ToIDispatch()
		defer next.Release()
		target = next
	}

	params, outs, err := bind(sig.params, args)
	defer func() {
		for _, o := range outs {
			o.Clear()
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("com %s: %w", method, err)
	}

	result, err := oleutil.CallMethod(target, sig.name, params...)
	if err != nil {
		return nil, fmt.Errorf("com %s: %w", method, err)
	}
	defer result.Clear()

	ret := variantValue(result)
	if len(outs) == 0 {
		return ret, nil
	}
	tuple := make([]any, 0, len(outs)+1)
	for _, o := range outs {
		tuple = append(tuple, variantValue(o))
	}
	return append(tuple, ret), nil
}

// bind maps positional arguments onto a signature. Trailing input
// parameters may be omitted; outputs are always allocated.
func bind(sig []param, args []any) ([]any, []*ole.VARIANT, error) {
	var params []any
	var outs []*ole.VARIANT
	next := 0

	for i, p := range sig {
		switch p {
		case pIn:
			if next >= len(args) {
				if trailingInputs(sig[i:]) {
					return params, outs, nil
				}
				return params, outs, fmt.Errorf("missing argument %d", next)
			}
			params = append(params, args[next])
			next++
		case pOut:
			v := new(ole.VARIANT)
			ole.VariantInit(v)
			params = append(params, v)
			outs = append(outs, v)
		case pInOut:
			var value any
			if next < len(args) {
				value = args[next]
			}
			next++
			v, err := toVariant(value)
			if err != nil {
				return params, outs, fmt.Errorf("argument %d: %w", next-1, err)
			}
			params = append(params, v)
			outs = append(outs, v)
		}
	}
	return params, outs, nil
}

func trailingInputs(sig []param) bool {
	for _, p := range sig {
		if p != pIn {
			return false
		}
	}
	return true
}

func toVariant(value any) (*ole.VARIANT, error) {
	switch v := value.(type) {
	case nil:
		out := new(ole.VARIANT)
		ole.VariantInit(out)
		return out, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return stringArray(items)
	case []any:
		return stringArray(v)
	case string:
		out := ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(ole.SysAllocString(v)))))
		return &out, nil
	case bool:
		b := int64(0)
		if v {
			b = -1
		}
		out := ole.NewVariant(ole.VT_BOOL, b)
		return &out, nil
	case float32, float64:
		f := cast.ToFloat64(v)
		out := ole.NewVariant(ole.VT_R8, *(*int64)(unsafe.Pointer(&f)))
		return &out, nil
	default:
		n, err := cast.ToInt32E(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported argument type %T", value)
		}
		out := ole.NewVariant(ole.VT_I4, int64(n))
		return &out, nil
	}
}

// stringArray builds a one-dimensional BSTR safe array. Nil cells become
// null strings.
func stringArray(values []any) (*ole.VARIANT, error) {
	sa, _, callErr := procSafeArrayCreateVector.Call(uintptr(ole.VT_BSTR), 0, uintptr(len(values)))
	if sa == 0 {
		return nil, fmt.Errorf("safe array: %w", callErr)
	}
	for i, value := range values {
		var bstr *int16
		if value != nil {
			bstr = ole.SysAllocString(cast.ToString(value))
		}
		idx := int32(i)
		hr, _, _ := procSafeArrayPutElement.Call(sa, uintptr(unsafe.Pointer(&idx)), uintptr(unsafe.Pointer(bstr)))
		if bstr != nil {
			ole.SysFreeString(bstr)
		}
		if hr != 0 {
			return nil, ole.NewError(hr)
		}
	}
	out := ole.NewVariant(ole.VT_ARRAY|ole.VT_BSTR, int64(sa))
	return &out, nil
}

func variantValue(v *ole.VARIANT) any {
	if v.VT&ole.VT_ARRAY != 0 {
		if arr := v.ToArray(); arr != nil {
			return arr.ToValueArray()
		}
		return nil
	}
	return v.Value()
}
