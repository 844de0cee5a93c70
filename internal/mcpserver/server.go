// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes contact book tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/parser"
)

const dateFormatURI = "rolodex://date-format"

// Server wraps the MCP server with contact book tools.
type Server struct {
	mcp *server.MCPServer
	svc *contactservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *contactservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Rolodex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_contact",
		mcp.WithDescription("Create a contact and return it with its assigned id."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact name")),
		mcp.WithString("notes", mcp.Description("Optional initial notes")),
	), s.addContact)

	s.mcp.AddTool(mcp.NewTool("find_contacts",
		mcp.WithDescription("Look up contacts by ids or by a case-sensitive name substring. "+
			"With neither argument, every contact is returned."),
		mcp.WithString("ids", mcp.Description("Comma-separated contact ids, e.g. 0,2")),
		mcp.WithString("name", mcp.Description("Case-sensitive substring of the name")),
	), s.findContacts)

	s.mcp.AddTool(mcp.NewTool("add_future_meeting",
		mcp.WithDescription("Schedule a meeting. The date must be strictly in the future. "+
			"Read the rolodex://date-format resource for accepted date forms."),
		mcp.WithString("contact_ids", mcp.Required(), mcp.Description("Comma-separated ids of known contacts")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Meeting date, dd/MM/yyyy HH:mm or RFC 3339")),
	), s.addFutureMeeting)

	s.mcp.AddTool(mcp.NewTool("add_past_meeting",
		mcp.WithDescription("Record a meeting that already took place, with its notes."),
		mcp.WithString("contact_ids", mcp.Required(), mcp.Description("Comma-separated ids of known contacts")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Meeting date, dd/MM/yyyy HH:mm or RFC 3339")),
		mcp.WithString("notes", mcp.Description("What happened")),
	), s.addPastMeeting)

	s.mcp.AddTool(mcp.NewTool("add_meeting_notes",
		mcp.WithDescription("Append notes to a past meeting. A future meeting whose date has "+
			"elapsed becomes past."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Meeting id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Notes to append")),
	), s.addMeetingNotes)

	s.mcp.AddTool(mcp.NewTool("get_meeting",
		mcp.WithDescription("Fetch a meeting by id. kind=future or kind=past fails when the "+
			"meeting is of the other kind."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Meeting id")),
		mcp.WithString("kind", mcp.Description("any (default), future or past"), mcp.Enum("any", "future", "past")),
	), s.getMeeting)

	s.mcp.AddTool(mcp.NewTool("contact_meetings",
		mcp.WithDescription("List a contact's future or past meetings in date order."),
		mcp.WithNumber("contact_id", mcp.Required(), mcp.Description("Contact id")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("future or past"), mcp.Enum("future", "past")),
	), s.contactMeetings)

	s.mcp.AddTool(mcp.NewTool("meetings_on_date",
		mcp.WithDescription("List every meeting, past and future, held on a calendar day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day as yyyy-mm-dd, or a full meeting date")),
	), s.meetingsOnDate)

	s.mcp.AddTool(mcp.NewTool("flush",
		mcp.WithDescription("Persist all contacts and meetings to the backing store."),
	), s.flush)

	s.mcp.AddTool(mcp.NewTool("get_date_format",
		mcp.WithDescription("Returns the date conventions used by every tool. "+
			"Call this before creating meetings."),
	), s.getDateFormat)

	// Resource: date format contract.
	s.mcp.AddResource(
		mcp.NewResource(dateFormatURI, "Date Format Contract",
			mcp.WithResourceDescription("Date forms accepted and produced by the contact book."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDateFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func meetingArgs(req mcp.CallToolRequest) ([]int, string, error) {
	raw, err := req.RequireString("contact_ids")
	if err != nil {
		return nil, "", err
	}
	ids, err := parser.ParseIDs(raw)
	if err != nil {
		return nil, "", err
	}
	date, err := req.RequireString("date")
	if err != nil {
		return nil, "", err
	}
	return ids, date, nil
}

func (s *Server) addContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.AddContact(ctx, name, req.GetString("notes", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) findContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		contacts []models.Contact
		err      error
	)
	ids, name := req.GetString("ids", ""), req.GetString("name", "")
	switch {
	case ids != "":
		parsed, perr := parser.ParseIDs(ids)
		if perr != nil {
			return mcp.NewToolResultError(perr.Error()), nil
		}
		contacts, err = s.svc.GetContactsByID(ctx, parsed...)
	case name != "":
		contacts, err = s.svc.GetContactsByName(ctx, name)
	default:
		contacts = s.svc.Contacts(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(contacts) == 0 {
		return mcp.NewToolResultText("no contacts found"), nil
	}
	return jsonResult(contacts), nil
}

func (s *Server) addFutureMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, raw, err := meetingArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := parser.ParseTimestamp(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.AddFutureMeeting(ctx, ids, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) addPastMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, raw, err := meetingArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := parser.ParseTimestamp(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.AddPastMeeting(ctx, ids, date, req.GetString("notes", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) addMeetingNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.AddMeetingNotes(ctx, id, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) getMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var m models.Meeting
	switch kind := req.GetString("kind", "any"); kind {
	case "any":
		m, err = s.svc.GetMeeting(ctx, id)
	case "future":
		m, err = s.svc.GetFutureMeeting(ctx, id)
	case "past":
		m, err = s.svc.GetPastMeeting(ctx, id)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) contactMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("contact_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var list []models.Meeting
	switch kind {
	case "future":
		list, err = s.svc.GetFutureMeetingsForContact(ctx, id)
	case "past":
		list, err = s.svc.GetPastMeetingsForContact(ctx, id)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no meetings found"), nil
	}
	return jsonResult(list), nil
}

func (s *Server) meetingsOnDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := parser.ParseDay(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list := s.svc.GetMeetingsOnDate(ctx, day)
	if len(list) == 0 {
		return mcp.NewToolResultText("no meetings found"), nil
	}
	return jsonResult(list), nil
}

func (s *Server) flush(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Flush(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Stats(ctx)), nil
}

func (s *Server) getDateFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DateFormatContract), nil
}

func (s *Server) readDateFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dateFormatURI,
			MIMEType: "text/markdown",
			Text:     DateFormatContract,
		},
	}, nil
}
