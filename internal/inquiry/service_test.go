package inquiry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lexsite/lexsite/backend/go-services/internal/mail"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Contact(t *testing.T) {
	repo := NewMemoryRepository()
	m := &mail.LogMailer{}
	svc := NewService(repo, m, "office@firm.example")

	in, err := svc.Submit(context.Background(), &Inquiry{Kind: KindContact, Name: "Ana", Email: "ana@example.com", Subject: "Lease", Message: "Hi"})
	require.NoError(t, err)
	require.NotEmpty(t, in.ID)
	require.Equal(t, StatusSent, in.Status)

	sent := m.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{"office@firm.example"}, sent[0].To)
	require.Equal(t, "ana@example.com", sent[0].ReplyTo)
	require.Contains(t, sent[0].Subject, "Lease")
	require.Contains(t, sent[0].Body, in.ID)

	list, err := svc.List(context.Background(), KindContact, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, StatusSent, list[0].Status)
}

func TestSubmit_ConsultationSendsInviteAndAck(t *testing.T) {
	m := &mail.LogMailer{}
	svc := NewService(NewMemoryRepository(), m, "office@firm.example")
	when := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)

	_, err := svc.Submit(context.Background(), &Inquiry{Kind: KindConsultation, Name: "Ben", Email: "ben@example.com", Phone: "123", PreferredDate: &when})
	require.NoError(t, err)

	sent := m.Sent()
	require.Len(t, sent, 2)
	require.Len(t, sent[0].Attachments, 1)
	require.Contains(t, string(sent[0].Attachments[0].Data), "DTSTART:20250701T140000Z")
	require.Equal(t, []string{"ben@example.com"}, sent[1].To)
}

func TestSubmit_MailFailureIsRecorded(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, &mail.LogMailer{Err: errors.New("smtp down")}, "office@firm.example")

	in, err := svc.Submit(context.Background(), &Inquiry{Kind: KindContact, Name: "C", Email: "c@example.com", Message: "m"})
	require.ErrorIs(t, err, ErrDelivery)
	require.Equal(t, StatusFailed, in.Status)

	list, err := repo.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, StatusFailed, list[0].Status)
	require.Equal(t, "smtp down", list[0].DeliveryError)
}

func TestSubmit_UnknownKind(t *testing.T) {
	svc := NewService(NewMemoryRepository(), &mail.LogMailer{}, "x@y.z")
	_, err := svc.Submit(context.Background(), &Inquiry{Kind: "spam"})
	require.Error(t, err)
}

func TestMemoryRepository_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &Inquiry{ID: id, Kind: KindContact, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, repo.Create(ctx, &Inquiry{ID: "d", Kind: KindConsultation, CreatedAt: base}))

	list, err := repo.List(ctx, KindContact, 2)
	require.NoError(t, err)
	require.Equal(t, "c", list[0].ID)
	require.Equal(t, "b", list[1].ID)
	require.Len(t, list, 2)

	require.ErrorIs(t, repo.UpdateStatus(ctx, "zzz", StatusSent, ""), ErrNotFound)
}

func TestCalendarEntry_EscapesAndFolds(t *testing.T) {
	when := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)
	in := &Inquiry{
		ID:            "3f1c",
		Name:          "Eve\r\nATTENDEE:mailto:attacker@evil.test\r\nDTSTART:19990101T000000Z; x, y \\ " + strings.Repeat("ü", 40),
		PreferredDate: &when,
		CreatedAt:     when,
	}
	raw := string(calendarEntry(in))

	for _, l := range strings.Split(strings.TrimSuffix(raw, "\r\n"), "\r\n") {
		require.LessOrEqual(t, len(l), 75, l)
		require.True(t, utf8.ValidString(l), l)
	}

	unfolded := strings.ReplaceAll(raw, "\r\n ", "")
	var dtstart, summary int
	for _, l := range strings.Split(unfolded, "\r\n") {
		require.False(t, strings.HasPrefix(l, "ATTENDEE"), l)
		if strings.HasPrefix(l, "DTSTART") {
			dtstart++
			require.Equal(t, "DTSTART:20250701T140000Z", l)
		}
		if strings.HasPrefix(l, "SUMMARY:") {
			summary++
			require.True(t, strings.HasPrefix(l, `SUMMARY:Consultation with Eve\nATTENDEE:mailto:attacker@evil.test\nDTSTART:19990101T000000Z\; x\, y \\ ü`), l)
		}
	}
	require.Equal(t, 1, dtstart)
	require.Equal(t, 1, summary)
}

func TestICSText(t *testing.T) {
	require.Equal(t, `a\,b\;c\\d\ne\nf`, icsText("a,b;c\\d\r\ne\nf\x00"))
}
