package searchrepo

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/msgdex/internal/db"
	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
)

// Storage layout for indexed messages.
const (
	IndexName        = domain.KeyPrefix + "messages:idx"
	MessageKeyPrefix = domain.KeyPrefix + "msg:"
	SuggestDict      = domain.KeyPrefix + "suggest"
)

// Hash field names in the message index schema.
const (
	fieldMessageID      = "message_id"
	fieldConversationID = "conversation_id"
	fieldAuthorID       = "author_id"
	fieldReplyToID      = "reply_to_id"
	fieldTimestamp      = "timestamp"
	fieldContent        = "content"
	fieldSummary        = "summary"
	fieldHasReply       = "has_reply"
	fieldFileTypes      = "file_types"
	fieldTags           = "tags"
	fieldVector         = "vector"
)

var returnFields = []string{
	fieldMessageID, fieldConversationID, fieldAuthorID, fieldReplyToID,
	fieldTimestamp, fieldContent, fieldSummary, fieldFileTypes,
}

// IndexedMessage is the unit written into the search index.
type IndexedMessage struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	ReplyToID      *int64
	Timestamp      time.Time
	Content        string
	Summary        string
	Tags           []string
	FileTypes      []string
	Vector         []float32
}

// MessageIndex returns the FT index definition for the message corpus.
func MessageIndex(vectorDim int, hnsw HNSWConfig) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{MessageKeyPrefix},
		Fields: []db.Field{
			{Name: fieldMessageID, Type: db.FieldNumeric},
			{Name: fieldConversationID, Type: db.FieldNumeric},
			{Name: fieldAuthorID, Type: db.FieldNumeric},
			{Name: fieldTimestamp, Type: db.FieldNumeric},
			{Name: fieldContent, Type: db.FieldText},
			{Name: fieldHasReply, Type: db.FieldTag},
			{Name: fieldFileTypes, Type: db.FieldTag},
			{Name: fieldTags, Type: db.FieldTag},
			{
				Name: fieldVector, Type: db.FieldVector, VectorDim: vectorDim,
				VectorM: hnsw.M, VectorEFConstruct: hnsw.EFConstruct,
			},
		},
	}
}

func messageKey(conversationID, messageID int64) string {
	return fmt.Sprintf("%s%d:%d", MessageKeyPrefix, conversationID, messageID)
}

func messageFields(m IndexedMessage) map[string]string {
	fields := map[string]string{
		fieldMessageID:      strconv.FormatInt(m.ID, 10),
		fieldConversationID: strconv.FormatInt(m.ConversationID, 10),
		fieldAuthorID:       strconv.FormatInt(m.AuthorID, 10),
		fieldTimestamp:      strconv.FormatInt(m.Timestamp.Unix(), 10),
		fieldContent:        m.Content,
		fieldSummary:        m.Summary,
		fieldHasReply:       "0",
	}
	if m.ReplyToID != nil {
		fields[fieldReplyToID] = strconv.FormatInt(*m.ReplyToID, 10)
		fields[fieldHasReply] = "1"
	}
	if len(m.FileTypes) > 0 {
		fields[fieldFileTypes] = strings.Join(m.FileTypes, ",")
	}
	if len(m.Tags) > 0 {
		fields[fieldTags] = strings.Join(m.Tags, ",")
	}
	if len(m.Vector) > 0 {
		fields[fieldVector] = vectorToBytes(m.Vector)
	}
	return fields
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// buildFilter translates a domain filter into an FT.SEARCH pre-filter
// string. An empty filter yields an empty string.
func buildFilter(f filter.Filter) string {
	if f.IsEmpty() {
		return ""
	}

	var parts []string
	if id := f.ConversationID(); id != nil {
		parts = append(parts, numericEq(fieldConversationID, *id))
	}
	if id := f.AuthorID(); id != nil {
		parts = append(parts, numericEq(fieldAuthorID, *id))
	}
	if start, end := f.StartDate(), f.EndDate(); start != nil || end != nil {
		minBound, maxBound := "-inf", "+inf"
		if start != nil {
			minBound = strconv.FormatInt(start.Unix(), 10)
		}
		if end != nil {
			maxBound = strconv.FormatInt(end.Unix(), 10)
		}
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", fieldTimestamp, minBound, maxBound))
	}
	if f.HasReply() {
		parts = append(parts, fmt.Sprintf("@%s:{1}", fieldHasReply))
	}
	for _, ft := range f.IncludedFileTypes() {
		parts = append(parts, tagMatch(fieldFileTypes, ft))
	}
	for _, ft := range f.ExcludedFileTypes() {
		parts = append(parts, "-"+tagMatch(fieldFileTypes, ft))
	}
	for _, tag := range f.RequiredTags() {
		parts = append(parts, tagMatch(fieldTags, tag))
	}
	for _, tag := range f.ExcludedTags() {
		parts = append(parts, "-"+tagMatch(fieldTags, tag))
	}
	return strings.Join(parts, " ")
}

func numericEq(field string, v int64) string {
	return fmt.Sprintf("@%s:[%d %d]", field, v, v)
}

var tagEscaper = strings.NewReplacer(
	",", `\,`, ".", `\.`, "<", `\<`, ">", `\>`, "{", `\{`, "}", `\}`,
	`"`, `\"`, "'", `\'`, ":", `\:`, ";", `\;`, "!", `\!`, "@", `\@`,
	"#", `\#`, "$", `\$`, "%", `\%`, "^", `\^`, "&", `\&`, "*", `\*`,
	"(", `\(`, ")", `\)`, "-", `\-`, "+", `\+`, "=", `\=`, "~", `\~`,
	" ", `\ `,
)

func tagMatch(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// entryToItem maps a search hit's hash fields onto a result item.
func entryToItem(e db.SearchEntry, score float64) result.Item {
	var (
		id, conversationID, authorID int64
		replyTo                      *int64
		ts                           time.Time
	)
	if v, err := strconv.ParseInt(e.Fields[fieldMessageID], 10, 64); err == nil {
		id = v
	}
	if v, err := strconv.ParseInt(e.Fields[fieldConversationID], 10, 64); err == nil {
		conversationID = v
	}
	if v, err := strconv.ParseInt(e.Fields[fieldAuthorID], 10, 64); err == nil {
		authorID = v
	}
	if raw, ok := e.Fields[fieldReplyToID]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			replyTo = &v
		}
	}
	if v, err := strconv.ParseInt(e.Fields[fieldTimestamp], 10, 64); err == nil {
		ts = time.Unix(v, 0).UTC()
	}

	var attachments []string
	if raw := e.Fields[fieldFileTypes]; raw != "" {
		attachments = strings.Split(raw, ",")
	}

	return result.NewItem(
		id, conversationID, e.Fields[fieldContent], ts,
		authorID, replyTo, score, nil, attachments,
	)
}
