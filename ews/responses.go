package ews

import "encoding/xml"

// Response is the body of every item and folder operation response, for
// example CopyItemResponse or FindItemResponse.
type Response struct {
	XMLName          xml.Name
	ResponseMessages ResponseMessages `xml:"ResponseMessages"`
}

// NewResponse returns an empty response for the named operation.
func NewResponse(operation string) *Response {
	return &Response{XMLName: xml.Name{Space: NSMessages, Local: operation + "Response"}}
}

// ResponseMessages holds one message per request entry. Element names vary
// by operation (CopyItemResponseMessage, DeleteItemResponseMessage, ...).
type ResponseMessages struct {
	Messages []ResponseMessage `xml:",any"`
}

// ResponseMessage is the union of the response message shapes used by item
// and folder operations.
type ResponseMessage struct {
	XMLName       xml.Name
	ResponseClass ResponseClass `xml:"ResponseClass,attr"`
	MessageText   string        `xml:"MessageText,omitempty"`
	ResponseCode  ResponseCode  `xml:"ResponseCode,omitempty"`
	Items         *Items        `xml:"Items,omitempty"`
	RootFolder    *RootFolder   `xml:"RootFolder,omitempty"`
	Folders       *Folders      `xml:"Folders,omitempty"`
}

type RootFolder struct {
	IndexedPagingOffset     int    `xml:"IndexedPagingOffset,attr,omitempty"`
	TotalItemsInView        int    `xml:"TotalItemsInView,attr"`
	IncludesLastItemInRange bool   `xml:"IncludesLastItemInRange,attr"`
	Items                   *Items `xml:"http://schemas.microsoft.com/exchange/services/2006/types Items,omitempty"`
}

// Success reports whether the message class is Success.
func (m ResponseMessage) Success() bool {
	return m.ResponseClass == ResponseClassSuccess
}

// Err returns a *ResponseError for any message that is not a success.
func (m ResponseMessage) Err() error {
	if m.Success() {
		return nil
	}
	return &ResponseError{Class: m.ResponseClass, Code: m.ResponseCode, Text: m.MessageText}
}

// Messages returns every response message; nil-safe.
func (r *Response) Messages() []ResponseMessage {
	if r == nil {
		return nil
	}
	return r.ResponseMessages.Messages
}

// Valid reports whether the response carries at least one message.
func (r *Response) Valid() bool {
	return len(r.Messages()) > 0
}

// Successful returns the messages whose class is Success.
func (r *Response) Successful() []ResponseMessage {
	var out []ResponseMessage
	for _, m := range r.Messages() {
		if m.Success() {
			out = append(out, m)
		}
	}
	return out
}

// FirstError returns the error of the first message that is not a success.
func (r *Response) FirstError() error {
	for _, m := range r.Messages() {
		if err := m.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Add appends a message named after the response operation.
func (r *Response) Add(m ResponseMessage) {
	if m.XMLName.Local == "" {
		m.XMLName = xml.Name{Local: r.XMLName.Local + "Message"}
	}
	r.ResponseMessages.Messages = append(r.ResponseMessages.Messages, m)
}

// SuccessMessage builds an empty NoError message.
func SuccessMessage() ResponseMessage {
	return ResponseMessage{ResponseClass: ResponseClassSuccess, ResponseCode: NoError}
}

// ErrorMessage builds an Error message with the given code and text.
func ErrorMessage(code ResponseCode, text string) ResponseMessage {
	return ResponseMessage{ResponseClass: ResponseClassError, ResponseCode: code, MessageText: text}
}
