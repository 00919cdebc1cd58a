// Package storagetest holds the ginkgo specs every storage backend must pass.
// Backend suites call the functions here from inside their own Describe.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/storage"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func entry(userID, content string, offset time.Duration) *journal.Entry {
	e, err := journal.NewEntry(userID, content, epoch.Add(offset))
	Expect(err).NotTo(HaveOccurred())
	return e
}

// EntryDriverSpecs registers the storage.Driver behaviors. newDriver is called
// before every spec; the driver is closed after it.
func EntryDriverSpecs(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("stores and retrieves an entry", func() {
		e := entry("ana", "slept well, felt rested", 0)
		Expect(driver.PutEntry(ctx, e)).To(Succeed())

		got, err := driver.GetEntry(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(e.ID))
		Expect(got.UserID).To(Equal("ana"))
		Expect(got.Content).To(Equal("slept well, felt rested"))
		Expect(got.CreatedAt.Equal(e.CreatedAt)).To(BeTrue())
		Expect(got.MoodLabel).To(BeNil())
		Expect(got.SentimentScore).To(BeNil())
	})

	It("returns a NotFoundError matching journal.ErrEntryNotFound", func() {
		_, err := driver.GetEntry(ctx, "missing")
		Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		Expect(errors.Is(err, journal.ErrEntryNotFound)).To(BeTrue())
	})

	It("lists a user's entries oldest first", func() {
		later := entry("ana", "second", time.Hour)
		earlier := entry("ana", "first", 0)
		other := entry("ben", "not mine", 30*time.Minute)
		for _, e := range []*journal.Entry{later, earlier, other} {
			Expect(driver.PutEntry(ctx, e)).To(Succeed())
		}

		list, err := driver.ListEntries(ctx, "ana")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list[0].Content).To(Equal("first"))
		Expect(list[1].Content).To(Equal("second"))
	})

	It("returns an empty list for a user with no entries", func() {
		list, err := driver.ListEntries(ctx, "nobody")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())
	})

	It("updates an entry's score", func() {
		e := entry("ana", "tense day at work", 0)
		Expect(driver.PutEntry(ctx, e)).To(Succeed())

		Expect(driver.UpdateEntryScore(ctx, e.ID, 0.3, "anxious")).To(Succeed())

		got, err := driver.GetEntry(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.SentimentScore).NotTo(BeNil())
		Expect(*got.SentimentScore).To(BeNumerically("~", 0.3, 1e-9))
		Expect(got.MoodLabel).To(HaveValue(Equal("anxious")))
	})

	It("fails to score a missing entry", func() {
		err := driver.UpdateEntryScore(ctx, "missing", 0.5, "calm")
		Expect(errors.Is(err, journal.ErrEntryNotFound)).To(BeTrue())
	})

	It("replaces an entry stored twice", func() {
		e := entry("ana", "draft", 0)
		Expect(driver.PutEntry(ctx, e)).To(Succeed())
		e.Content = "final"
		Expect(driver.PutEntry(ctx, e)).To(Succeed())

		list, err := driver.ListEntries(ctx, "ana")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Content).To(Equal("final"))
	})

	It("deletes an entry", func() {
		e := entry("ana", "to remove", 0)
		Expect(driver.PutEntry(ctx, e)).To(Succeed())
		Expect(driver.DeleteEntry(ctx, e.ID)).To(Succeed())

		_, err := driver.GetEntry(ctx, e.ID)
		Expect(errors.Is(err, journal.ErrEntryNotFound)).To(BeTrue())

		err = driver.DeleteEntry(ctx, e.ID)
		Expect(errors.Is(err, journal.ErrEntryNotFound)).To(BeTrue())
	})
}

// SessionDriverSpecs registers the storage.SessionDriver behaviors.
func SessionDriverSpecs(newDriver func() storage.SessionDriver) {
	var (
		driver storage.SessionDriver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("stores and retrieves a session with its transcript and mood", func() {
		s := chat.NewSession("ana", epoch)
		Expect(driver.PutSession(ctx, s)).To(Succeed())

		got, err := driver.GetSession(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(s.ID))
		Expect(got.UserID).To(Equal("ana"))
		Expect(got.Messages).To(HaveLen(1))
		Expect(got.Messages[0].Content).To(Equal(chat.WelcomeMessage))
		Expect(got.Mood).To(HaveLen(1))
		Expect(got.Mood[0].Sentiment).To(Equal(0.5))
	})

	It("returns a NotFoundError matching chat.ErrSessionNotFound", func() {
		_, err := driver.GetSession(ctx, "missing")
		Expect(errors.Is(err, chat.ErrSessionNotFound)).To(BeTrue())
	})

	It("does not share state with the caller", func() {
		s := chat.NewSession("ana", epoch)
		Expect(driver.PutSession(ctx, s)).To(Succeed())
		s.Messages = append(s.Messages, chat.Message{ID: "x", Role: "user", Content: "unsaved"})

		got, err := driver.GetSession(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Messages).To(HaveLen(1))
	})

	It("lists a user's sessions most recently updated first", func() {
		older := chat.NewSession("ana", epoch)
		newer := chat.NewSession("ana", epoch)
		newer.UpdatedAt = epoch.Add(time.Hour)
		other := chat.NewSession("ben", epoch)
		for _, s := range []*chat.Session{older, newer, other} {
			Expect(driver.PutSession(ctx, s)).To(Succeed())
		}

		list, err := driver.ListSessions(ctx, "ana")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list[0].ID).To(Equal(newer.ID))
		Expect(list[1].ID).To(Equal(older.ID))
	})

	It("deletes a session", func() {
		s := chat.NewSession("ana", epoch)
		Expect(driver.PutSession(ctx, s)).To(Succeed())
		Expect(driver.DeleteSession(ctx, s.ID)).To(Succeed())

		_, err := driver.GetSession(ctx, s.ID)
		Expect(errors.Is(err, chat.ErrSessionNotFound)).To(BeTrue())

		list, err := driver.ListSessions(ctx, "ana")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())

		err = driver.DeleteSession(ctx, s.ID)
		Expect(errors.Is(err, chat.ErrSessionNotFound)).To(BeTrue())
	})
}
