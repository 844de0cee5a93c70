package mcpserver

// DateFormatContract describes how dates are written and read by the tools,
// so LLM consumers schedule meetings at the intended instant.
const DateFormatContract = `# Rolodex Date Format Contract

All meeting dates are interpreted in the server's local time zone unless
they carry an explicit offset.

## Accepted input

| Form | Example | Used by |
|------|---------|---------|
| ` + "`" + `dd/MM/yyyy HH:mm` + "`" + ` | ` + "`" + `24/12/2030 09:30` + "`" + ` | add_future_meeting, add_past_meeting, meetings_on_date |
| RFC 3339 | ` + "`" + `2030-12-24T09:30:00+01:00` + "`" + ` | add_future_meeting, add_past_meeting, meetings_on_date |
| ` + "`" + `yyyy-mm-dd` + "`" + ` | ` + "`" + `2030-12-24` + "`" + ` | meetings_on_date only |

## Rules

1. **Future meetings** need a date strictly after the current instant. A date
   equal to now is rejected.
2. **Past meetings** may carry any date, including now or a future date, so
   outcomes can be logged ahead of time.
3. **Notes on a future meeting** are only accepted once its date has passed;
   the meeting then becomes a past meeting.
4. **Minutes** are the finest precision kept. Seconds are dropped when a
   meeting is created, so a future meeting must fall in a later minute.
5. **Day queries** return both past and future meetings on that calendar day,
   ordered by time, then by id.

## Output

Tool results render dates as RFC 3339 inside JSON. The data file stores them
as ` + "`" + `dd/MM/yyyy HH:mm` + "`" + `.
`
