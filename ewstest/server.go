package ewstest

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

// Exchange is the in-memory mailbox store and its SOAP handler.
type Exchange struct {
	mu        sync.Mutex
	log       *logrus.Entry
	now       func() time.Time
	delay     time.Duration
	token     string
	users     map[string]string
	mailboxes map[string]*mailbox
	folders   map[string]*folder
	records   map[string]*record
	seq       int
	version   ews.ServerVersionInfo
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithDeliveryDelay holds messages sent to other mailboxes back for d.
func WithDeliveryDelay(d time.Duration) Option {
	return func(e *Exchange) { e.delay = d }
}

// WithUser registers basic credentials. Once any user is registered, only
// registered credentials are accepted.
func WithUser(name, password string) Option {
	return func(e *Exchange) { e.users[strings.ToLower(name)] = password }
}

// WithBearerToken restricts bearer authentication to one token. By default
// any bearer token is accepted.
func WithBearerToken(token string) Option {
	return func(e *Exchange) { e.token = token }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

// WithLogger sets the entry requests are logged through.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Exchange) { e.log = log }
}

// New creates an empty Exchange.
func New(opts ...Option) *Exchange {
	e := &Exchange{
		log:       logrus.NewEntry(logrus.StandardLogger()),
		now:       time.Now,
		users:     make(map[string]string),
		mailboxes: make(map[string]*mailbox),
		folders:   make(map[string]*folder),
		records:   make(map[string]*record),
		version: ews.ServerVersionInfo{
			MajorVersion:     15,
			MinorVersion:     1,
			MajorBuildNumber: 2507,
			MinorBuildNumber: 6,
			Version:          "V2017_07_11",
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "ewstest")
	return e
}

// AddUser registers basic credentials.
func (e *Exchange) AddUser(name, password string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.users[strings.ToLower(name)] = password
}

// Server is an Exchange served over httptest.
type Server struct {
	*httptest.Server
	*Exchange
}

// NewServer starts an Exchange on a local HTTP listener.
func NewServer(opts ...Option) *Server {
	e := New(opts...)
	return &Server{Server: httptest.NewServer(e), Exchange: e}
}

// NewTLSServer starts an Exchange on a local HTTPS listener. Use the
// embedded server's Client to trust its certificate.
func NewTLSServer(opts ...Option) *Server {
	e := New(opts...)
	return &Server{Server: httptest.NewTLSServer(e), Exchange: e}
}

// ItemCount returns the number of items in a distinguished folder of a
// mailbox, including items whose delivery is still pending.
func (e *Exchange) ItemCount(address string, name ews.DistinguishedFolderName) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.mailboxFor(address).folders[name]
	n := 0
	for _, r := range e.records {
		if r.folder == f {
			n++
		}
	}
	return n
}

// ItemClasses lists the item classes visible in a distinguished folder of a
// mailbox, in creation order.
func (e *Exchange) ItemClasses(address string, name ews.DistinguishedFolderName) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	for _, r := range e.recordsIn(e.mailboxFor(address).folders[name]) {
		out = append(out, r.itemClass())
	}
	return out
}

func (e *Exchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ews.IsSOAPContentType(r.Header.Get("Content-Type")) {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	ed, err := ews.NewEnvelopeDecoder(r.Body)
	if err != nil {
		e.fault(w, "a:ErrorSchemaValidation", ews.ErrorSchemaValidation, "The request failed schema validation: "+err.Error())
		return
	}

	address, ok := e.authenticate(r, ed.Header)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="ewstest"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	log := e.log.WithFields(logrus.Fields{"operation": ed.Operation(), "mailbox": address})

	resp, code := e.dispatch(ed, address)
	if code != ews.NoError {
		log.WithField("code", code).Warn("request faulted")
		e.fault(w, "a:"+string(code), code, itemNotFoundText(code))
		return
	}

	log.WithField("messages", len(resp.Messages())).Debug("handled request")
	e.write(w, http.StatusOK, resp)
}

// authenticate returns the mailbox the request acts as.
func (e *Exchange) authenticate(r *http.Request, header ews.Header) (string, bool) {
	impersonated := ""
	if header.ExchangeImpersonation != nil {
		impersonated = header.ExchangeImpersonation.ConnectingSID.Address()
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || (e.token != "" && token != e.token) || impersonated == "" {
			return "", false
		}
		return impersonated, true
	}

	user, password, ok := r.BasicAuth()
	if !ok {
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.users) > 0 {
		want, found := e.users[strings.ToLower(user)]
		if !found {
			if at := strings.Index(user, "@"); at > 0 {
				want, found = e.users[strings.ToLower(user[:at])]
			}
		}
		if !found || want != password {
			return "", false
		}
	}

	if impersonated != "" {
		return impersonated, true
	}
	return user, true
}

func (e *Exchange) dispatch(ed *ews.EnvelopeDecoder, address string) (*ews.Response, ews.ResponseCode) {
	var (
		request interface{}
		handle  func(mb *mailbox) *ews.Response
	)

	switch ed.Operation() {
	case "CreateItem":
		req := &ews.CreateItem{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.createItem(mb, req) }
	case "CopyItem":
		req := &ews.CopyItem{}
		request, handle = req, func(mb *mailbox) *ews.Response {
			return e.copyOrMove(mb, "CopyItem", req.ToFolderId, req.ItemIds, req.ReturnNewItemIds, false)
		}
	case "MoveItem":
		req := &ews.MoveItem{}
		request, handle = req, func(mb *mailbox) *ews.Response {
			return e.copyOrMove(mb, "MoveItem", req.ToFolderId, req.ItemIds, req.ReturnNewItemIds, true)
		}
	case "DeleteItem":
		req := &ews.DeleteItem{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.deleteItem(mb, req) }
	case "GetItem":
		req := &ews.GetItem{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.getItem(mb, req) }
	case "FindItem":
		req := &ews.FindItem{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.findItem(mb, req) }
	case "UpdateItem":
		req := &ews.UpdateItem{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.updateItem(mb, req) }
	case "CreateFolder":
		req := &ews.CreateFolder{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.createFolder(mb, req) }
	case "DeleteFolder":
		req := &ews.DeleteFolder{}
		request, handle = req, func(mb *mailbox) *ews.Response { return e.deleteFolder(mb, req) }
	default:
		return nil, ews.ErrorInvalidRequest
	}

	if err := ed.Decode(request); err != nil {
		e.log.WithError(err).Warn("invalid request body")
		return nil, ews.ErrorSchemaValidation
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return handle(e.mailboxFor(address)), ews.NoError
}

func (e *Exchange) write(w http.ResponseWriter, status int, content interface{}) {
	header := &ews.Header{ServerVersionInfo: &e.version}
	data, err := xml.Marshal(ews.NewEnvelope(header, content))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(data)
}

func (e *Exchange) fault(w http.ResponseWriter, faultCode string, code ews.ResponseCode, message string) {
	e.write(w, http.StatusInternalServerError, ews.NewSOAPFault(faultCode, code, message))
}
