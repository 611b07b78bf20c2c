package harness

import (
	"context"
	"strings"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

// MeetingsAdapter sends the calendar item operations.
type MeetingsAdapter interface {
	SwitchUser(user, password, domain string)
	CreateItem(ctx context.Context, request *ews.CreateItem) (*ews.Response, error)
	UpdateItem(ctx context.Context, request *ews.UpdateItem) (*ews.Response, error)
	DeleteItem(ctx context.Context, request *ews.DeleteItem) (*ews.Response, error)
	GetItem(ctx context.Context, request *ews.GetItem) (*ews.Response, error)
	CopyItem(ctx context.Context, request *ews.CopyItem) (*ews.Response, error)
	MoveItem(ctx context.Context, request *ews.MoveItem) (*ews.Response, error)
}

// SearchAdapter sends FindItem.
type SearchAdapter interface {
	SwitchUser(user, password, domain string)
	FindItem(ctx context.Context, request *ews.FindItem) (*ews.Response, error)
}

// FolderAdapter sends the folder operations.
type FolderAdapter interface {
	SwitchUser(user, password, domain string)
	CreateFolder(ctx context.Context, request *ews.CreateFolder) (*ews.Response, error)
	DeleteFolder(ctx context.Context, request *ews.DeleteFolder) (*ews.Response, error)
}

// Transport is implemented by adapters that can describe the exchange of
// their latest request.
type Transport interface {
	LastExchange() ews.ExchangeInfo
}

// Adapters bundles the three adapter roles.
type Adapters struct {
	Meetings MeetingsAdapter
	Search   SearchAdapter
	Folders  FolderAdapter
}

// NewAdapters lets one client play all three roles.
func NewAdapters(c *ews.EWSClient) Adapters {
	return Adapters{Meetings: c, Search: c, Folders: c}
}

// capturingMeetings verifies the transport and WSDL requirements after each
// operation.
type capturingMeetings struct {
	MeetingsAdapter
	rec *requirement.Recorder
}

func (a capturingMeetings) CreateItem(ctx context.Context, request *ews.CreateItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.CreateItem(ctx, request)
	return a.verify(resp, err, "CreateItem", nil)
}

func (a capturingMeetings) DeleteItem(ctx context.Context, request *ews.DeleteItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.DeleteItem(ctx, request)
	return a.verify(resp, err, "DeleteItem", nil)
}

func (a capturingMeetings) GetItem(ctx context.Context, request *ews.GetItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.GetItem(ctx, request)
	return a.verify(resp, err, "GetItem", nil)
}

func (a capturingMeetings) CopyItem(ctx context.Context, request *ews.CopyItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.CopyItem(ctx, request)
	return a.verify(resp, err, "CopyItem", &wsdlRequirements{
		portType:    464,
		portTypeDoc: `[In CopyItem operation] The following is the WSDL port type specification for the CopyItem operation.`,
		binding:     597,
		bindingDoc:  `[In CopyItem Operation] The following is the WSDL binding specification for the CopyItem operation.`,
	})
}

func (a capturingMeetings) MoveItem(ctx context.Context, request *ews.MoveItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.MoveItem(ctx, request)
	return a.verify(resp, err, "MoveItem", &wsdlRequirements{
		portType:    457,
		portTypeDoc: `[In MoveItem operation] The following is the WSDL port type specification for the MoveItem operation.`,
		binding:     635,
		bindingDoc:  `[In MoveItem Operation] The following is the WSDL binding specification for the MoveItem operation.`,
	})
}

func (a capturingMeetings) UpdateItem(ctx context.Context, request *ews.UpdateItem) (*ews.Response, error) {
	resp, err := a.MeetingsAdapter.UpdateItem(ctx, request)
	return a.verify(resp, err, "UpdateItem", &wsdlRequirements{
		portType:    451,
		portTypeDoc: `[In UpdateItem operation] The following is the WSDL port type specification for the UpdateItem operation.`,
		binding:     645,
		bindingDoc:  `[In UpdateItem Operation] The following is the WSDL binding specification for the UpdateItem operation.`,
	})
}

type wsdlRequirements struct {
	portType    int
	portTypeDoc string
	binding     int
	bindingDoc  string
}

func (a capturingMeetings) verify(resp *ews.Response, err error, operation string, wsdl *wsdlRequirements) (*ews.Response, error) {
	if err != nil {
		return nil, err
	}

	if err := verifyTransport(a.rec, a.MeetingsAdapter); err != nil {
		return resp, err
	}

	if wsdl == nil {
		return resp, nil
	}

	// A response decoded under the operation's response element shows the
	// port type round trip.
	if err := requirement.CaptureIfEqual(a.rec, operation+"Response", resp.XMLName.Local, wsdl.portType, wsdl.portTypeDoc); err != nil {
		return resp, err
	}

	// The binding's output carries the ServerVersion header.
	if t, ok := a.MeetingsAdapter.(Transport); ok {
		if err := a.rec.CaptureIfNotNil(t.LastExchange().ServerVersion, wsdl.binding, wsdl.bindingDoc); err != nil {
			return resp, err
		}
	} else {
		a.rec.Capture(wsdl.binding, wsdl.bindingDoc)
	}

	return resp, nil
}

type capturingSearch struct {
	SearchAdapter
	rec *requirement.Recorder
}

func (a capturingSearch) FindItem(ctx context.Context, request *ews.FindItem) (*ews.Response, error) {
	resp, err := a.SearchAdapter.FindItem(ctx, request)
	if err != nil {
		return nil, err
	}
	return resp, verifyTransport(a.rec, a.SearchAdapter)
}

type capturingFolders struct {
	FolderAdapter
	rec *requirement.Recorder
}

func (a capturingFolders) CreateFolder(ctx context.Context, request *ews.CreateFolder) (*ews.Response, error) {
	resp, err := a.FolderAdapter.CreateFolder(ctx, request)
	if err != nil {
		return nil, err
	}
	return resp, verifyTransport(a.rec, a.FolderAdapter)
}

func (a capturingFolders) DeleteFolder(ctx context.Context, request *ews.DeleteFolder) (*ews.Response, error) {
	resp, err := a.FolderAdapter.DeleteFolder(ctx, request)
	if err != nil {
		return nil, err
	}
	return resp, verifyTransport(a.rec, a.FolderAdapter)
}

// verifyTransport captures the SOAP 1.1 and HTTP(S) transport requirements.
func verifyTransport(rec *requirement.Recorder, adapter interface{}) error {
	t, ok := adapter.(Transport)
	if !ok {
		rec.Capture(1, `[In Transport] Messages are transported by using SOAP version 1.1, as specified in [SOAP1.1].`)
		return nil
	}

	info := t.LastExchange()
	if err := rec.CaptureIfTrue(ews.IsSOAPContentType(info.ContentType), 1,
		`[In Transport] Messages are transported by using SOAP version 1.1, as specified in [SOAP1.1].`); err != nil {
		return err
	}

	switch strings.ToLower(info.Scheme) {
	case "https":
		if rec.IsEnabled(504) {
			rec.Capture(504, `[In Appendix C: Product Behavior] Implementation does support SOAP over HTTPS, as specified in [RFC2818]. (Exchange 2007 and above follow this behavior.)`)
		}
	case "http":
		rec.Capture(502, `[In Transport] The protocol MUST support SOAP over HTTP, as specified in [RFC2616].`)
	}
	return nil
}
