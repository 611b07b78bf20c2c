package ews

import "fmt"

// ResponseClass is the outcome class of a single response message.
type ResponseClass string

const (
	ResponseClassSuccess ResponseClass = "Success"
	ResponseClassWarning ResponseClass = "Warning"
	ResponseClassError   ResponseClass = "Error"
)

// ResponseCode is the EWS error code of a single response message.
type ResponseCode string

const (
	NoError                                            ResponseCode = "NoError"
	ErrorAccessDenied                                  ResponseCode = "ErrorAccessDenied"
	ErrorCalendarCannotMoveOrCopyOccurrence            ResponseCode = "ErrorCalendarCannotMoveOrCopyOccurrence"
	ErrorCalendarCannotUseIdForOccurrenceId            ResponseCode = "ErrorCalendarCannotUseIdForOccurrenceId"
	ErrorCalendarCannotUseIdForRecurringMasterId       ResponseCode = "ErrorCalendarCannotUseIdForRecurringMasterId"
	ErrorCalendarEndDateIsEarlierThanStartDate         ResponseCode = "ErrorCalendarEndDateIsEarlierThanStartDate"
	ErrorCalendarIsOrganizerForAccept                  ResponseCode = "ErrorCalendarIsOrganizerForAccept"
	ErrorCalendarIsOrganizerForRemove                  ResponseCode = "ErrorCalendarIsOrganizerForRemove"
	ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange ResponseCode = "ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange"
	ErrorCalendarOccurrenceIsDeletedFromRecurrence     ResponseCode = "ErrorCalendarOccurrenceIsDeletedFromRecurrence"
	ErrorDeleteDistinguishedFolder                     ResponseCode = "ErrorDeleteDistinguishedFolder"
	ErrorFolderExists                                  ResponseCode = "ErrorFolderExists"
	ErrorFolderNotFound                                ResponseCode = "ErrorFolderNotFound"
	ErrorImpersonateUserDenied                         ResponseCode = "ErrorImpersonateUserDenied"
	ErrorInvalidIdMalformed                            ResponseCode = "ErrorInvalidIdMalformed"
	ErrorInvalidPropertySet                            ResponseCode = "ErrorInvalidPropertySet"
	ErrorInvalidRecurrence                             ResponseCode = "ErrorInvalidRecurrence"
	ErrorInvalidRequest                                ResponseCode = "ErrorInvalidRequest"
	ErrorItemNotFound                                  ResponseCode = "ErrorItemNotFound"
	ErrorSchemaValidation                              ResponseCode = "ErrorSchemaValidation"
	ErrorUnsupportedPathForSet                         ResponseCode = "ErrorUnsupportedPathForSet"
)

// ResponseError describes a response message whose class is not Success.
type ResponseError struct {
	Class ResponseClass
	Code  ResponseCode
	Text  string
}

func (e *ResponseError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("ews %s %s: %s", e.Class, e.Code, e.Text)
	}
	return fmt.Sprintf("ews %s %s", e.Class, e.Code)
}
