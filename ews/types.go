package ews

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// XML namespaces used by EWS requests and responses.
const (
	NSSoap     = "http://schemas.xmlsoap.org/soap/envelope/"
	NSTypes    = "http://schemas.microsoft.com/exchange/services/2006/types"
	NSMessages = "http://schemas.microsoft.com/exchange/services/2006/messages"
)

// DefaultVersion is the RequestServerVersion sent when none is configured.
const DefaultVersion = "Exchange2010_SP2"

// SOAP envelope structures
type Envelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	XMLNS   string   `xml:"xmlns:s,attr"`
	XMLNSt  string   `xml:"xmlns:t,attr"`
	XMLNSm  string   `xml:"xmlns:m,attr"`
	Header  *Header  `xml:"s:Header,omitempty"`
	Body    Body     `xml:"s:Body"`
}

// NewEnvelope wraps content in a SOAP 1.1 envelope with the EWS prefixes declared.
func NewEnvelope(header *Header, content interface{}) Envelope {
	return Envelope{
		XMLNS:  NSSoap,
		XMLNSt: NSTypes,
		XMLNSm: NSMessages,
		Header: header,
		Body:   Body{Content: content},
	}
}

// Body holds exactly one operation request, response or fault.
type Body struct {
	Content interface{}
}

// Header carries the EWS SOAP headers. The same type is used on both sides
// of the wire: clients fill RequestServerVersion and ExchangeImpersonation,
// servers fill ServerVersionInfo.
type Header struct {
	RequestServerVersion  *RequestServerVersion  `xml:"http://schemas.microsoft.com/exchange/services/2006/types RequestServerVersion,omitempty"`
	ExchangeImpersonation *ExchangeImpersonation `xml:"http://schemas.microsoft.com/exchange/services/2006/types ExchangeImpersonation,omitempty"`
	ServerVersionInfo     *ServerVersionInfo     `xml:"http://schemas.microsoft.com/exchange/services/2006/types ServerVersionInfo,omitempty"`
}

type RequestServerVersion struct {
	Version string `xml:"Version,attr"`
}

// ExchangeImpersonation defines the structure for the EWS impersonation header
type ExchangeImpersonation struct {
	ConnectingSID ConnectingSID `xml:"ConnectingSID"`
}

// ConnectingSID specifies the user to impersonate
type ConnectingSID struct {
	PrimarySmtpAddress string `xml:"PrimarySmtpAddress,omitempty"`
	SmtpAddress        string `xml:"SmtpAddress,omitempty"`
}

// Address returns whichever SMTP address the header carries.
func (c ConnectingSID) Address() string {
	if c.PrimarySmtpAddress != "" {
		return c.PrimarySmtpAddress
	}
	return c.SmtpAddress
}

type ServerVersionInfo struct {
	MajorVersion     int    `xml:"MajorVersion,attr,omitempty"`
	MinorVersion     int    `xml:"MinorVersion,attr,omitempty"`
	MajorBuildNumber int    `xml:"MajorBuildNumber,attr,omitempty"`
	MinorBuildNumber int    `xml:"MinorBuildNumber,attr,omitempty"`
	Version          string `xml:"Version,attr,omitempty"`
}

// SOAPFault is returned by the server when a request cannot be processed at
// the SOAP layer, for example a schema validation failure.
type SOAPFault struct {
	XMLName xml.Name
	Code    string       `xml:"faultcode"`
	String  string       `xml:"faultstring"`
	Actor   string       `xml:"faultactor,omitempty"`
	Detail  *FaultDetail `xml:"detail,omitempty"`
}

type FaultDetail struct {
	ResponseCode ResponseCode `xml:"http://schemas.microsoft.com/exchange/services/2006/errors ResponseCode,omitempty"`
	Message      string       `xml:"http://schemas.microsoft.com/exchange/services/2006/errors Message,omitempty"`
}

// NewSOAPFault builds a fault ready to be placed in an envelope body.
func NewSOAPFault(faultCode string, responseCode ResponseCode, message string) *SOAPFault {
	return &SOAPFault{
		XMLName: xml.Name{Local: "s:Fault"},
		Code:    faultCode,
		String:  message,
		Detail:  &FaultDetail{ResponseCode: responseCode, Message: message},
	}
}

func (f *SOAPFault) Error() string {
	if f.Detail != nil && f.Detail.ResponseCode != "" {
		return fmt.Sprintf("soap fault %s (%s): %s", f.Code, f.Detail.ResponseCode, f.String)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// ErrEmptyBody is returned when a SOAP envelope has no body content.
var ErrEmptyBody = errors.New("soap envelope has no body content")

// EnvelopeDecoder reads a SOAP envelope up to the first element inside the
// body. The header, when present, is decoded on the way.
type EnvelopeDecoder struct {
	Header Header
	Start  xml.StartElement

	d *xml.Decoder
}

// NewEnvelopeDecoder positions a decoder on the body content of the envelope read from r.
func NewEnvelopeDecoder(r io.Reader) (*EnvelopeDecoder, error) {
	ed := &EnvelopeDecoder{d: xml.NewDecoder(r)}
	inBody := false

	for {
		tok, err := ed.d.Token()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		if err != nil {
			return nil, fmt.Errorf("error reading envelope: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case inBody:
			ed.Start = se
			return ed, nil
		case se.Name.Local == "Header":
			if err := ed.d.DecodeElement(&ed.Header, &se); err != nil {
				return nil, fmt.Errorf("error decoding header: %w", err)
			}
		case se.Name.Local == "Body":
			inBody = true
		}
	}
}

// Operation is the local name of the body element, e.g. "CopyItem".
func (ed *EnvelopeDecoder) Operation() string {
	return ed.Start.Name.Local
}

// IsFault reports whether the body carries a SOAP fault.
func (ed *EnvelopeDecoder) IsFault() bool {
	return ed.Start.Name.Local == "Fault" && (ed.Start.Name.Space == NSSoap || ed.Start.Name.Space == "")
}

// Decode unmarshals the body element into v.
func (ed *EnvelopeDecoder) Decode(v interface{}) error {
	if err := ed.d.DecodeElement(v, &ed.Start); err != nil {
		return fmt.Errorf("error decoding %s: %w", ed.Start.Name.Local, err)
	}
	return nil
}

// Fault decodes the body as a SOAP fault.
func (ed *EnvelopeDecoder) Fault() (*SOAPFault, error) {
	fault := &SOAPFault{}
	if err := ed.Decode(fault); err != nil {
		return nil, err
	}
	return fault, nil
}

// IsSOAPContentType reports whether a Content-Type header names a SOAP 1.1 payload.
func IsSOAPContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/xml")
}
