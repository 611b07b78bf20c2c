// Package ewstest provides an in-memory Exchange Web Services server for testing.
//
// The server speaks the SOAP surface used by the calendar conformance
// scenarios and keeps every mailbox in memory. Messages sent between
// mailboxes can be held back for a configurable delay, so callers that poll
// for meeting requests, responses and cancellations see the same eventual
// delivery they would against a real server.
//
// # Supported Operations
//
//   - CreateItem: calendar items, messages, AcceptItem, TentativelyAcceptItem,
//     DeclineItem and RemoveItem
//   - CopyItem and MoveItem, including the occurrence and recurring master rules
//   - DeleteItem, with meeting cancellations
//   - GetItem, with occurrence expansion and conflicting/adjacent meeting counts
//   - FindItem, with Contains restrictions and calendar views
//   - UpdateItem
//   - CreateFolder and DeleteFolder
//
// # Basic Usage
//
//	server := ewstest.NewServer(ewstest.WithUser("organizer", "secret"))
//	defer server.Close()
//
//	client, err := ews.NewClient(server.URL, "organizer@contoso.com", "secret")
//
// With no users registered every basic credential is accepted and names the
// mailbox it acts as. A bearer token must come with an ExchangeImpersonation
// header naming the mailbox.
package ewstest
