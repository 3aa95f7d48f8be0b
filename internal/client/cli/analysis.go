package cli

import (
	"context"
	"fmt"
	"os"

	"phishvault/internal/client/models"
	"phishvault/internal/client/services"
)

// classifier is the verdict source for the analyze command. The built-in
// keyword fallback stands in for the real model endpoint.
var classifier = services.NewKeywordClassifier()

// Analyze captures one piece of content, classifies it, and stores the
// encrypted record on the backend. Requires an unlocked session.
func (a *App) Analyze(ctx context.Context) error {
	if !a.isUnlocked() {
		fmt.Println("Unlock the session first.")
		return nil
	}

	kindText, err := getSimpleText(a.reader, "Input kind (email/url/text)", os.Stdout)
	if err != nil {
		return err
	}
	var kind models.InputKind
	switch kindText {
	case "email":
		kind = models.InputKindEmail
	case "url":
		kind = models.InputKindURL
	case "text", "":
		kind = models.InputKindText
	default:
		fmt.Println("Unknown input kind:", kindText)
		return nil
	}

	email, err := getSimpleText(a.reader, "Your email address", os.Stdout)
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "Paste the content to analyze", os.Stdout)
	if err != nil {
		return err
	}
	if content == "" {
		fmt.Println("Nothing to analyze.")
		return nil
	}

	contextNote, err := getSimpleText(a.reader, "Context note (optional)", os.Stdout)
	if err != nil {
		return err
	}

	result, err := classifier.Classify(ctx, kind, content)
	if err != nil {
		fmt.Println("Classification failed:", err)
		return err
	}

	record := &models.Analysis{
		InputKind:    kind,
		UserEmail:    email,
		InputContent: content,
		Context:      contextNote,
		MLResult:     result,
	}
	saved, err := a.analyses.Add(ctx, record)
	if err != nil {
		fmt.Println("Could not save the analysis:", err)
		return err
	}

	verdict := "looks clean"
	if result.IsPhishing {
		verdict = "PHISHING"
	}
	fmt.Printf("%s (probability %.2f), saved as %s\n", verdict, result.PhishingProbability, saved.ID)
	return nil
}

// List prints the decrypted history. Records that cannot be decrypted under
// the current key are shown as unreadable rather than hidden.
func (a *App) List(ctx context.Context) error {
	if !a.isUnlocked() {
		fmt.Println("Unlock the session first.")
		return nil
	}

	items, err := a.analyses.List(ctx)
	if err != nil {
		fmt.Println("Could not list the history:", err)
		return err
	}
	if len(items) == 0 {
		fmt.Println("No analyses yet.")
		return nil
	}

	for _, item := range items {
		if item.Unreadable {
			fmt.Printf("%s  %-5s  %s  <unreadable>\n", item.ID, item.InputKind, item.CreatedAt.Format("2006-01-02 15:04"))
			continue
		}
		verdict := "clean"
		if item.IsPhishing {
			verdict = "phishing"
		}
		fmt.Printf("%s  %-5s  %s  %-8s %.2f\n", item.ID, item.InputKind, item.CreatedAt.Format("2006-01-02 15:04"), verdict, item.Confidence)
	}
	return nil
}

// Show prints one fully decrypted record by id.
func (a *App) Show(ctx context.Context) error {
	if !a.isUnlocked() {
		fmt.Println("Unlock the session first.")
		return nil
	}

	id, err := getSimpleText(a.reader, "Record ID", os.Stdout)
	if err != nil {
		return err
	}

	record, err := a.analyses.Get(ctx, id)
	if err != nil {
		fmt.Println("Could not fetch the record:", err)
		return err
	}

	fmt.Printf("ID:         %s\n", record.ID)
	fmt.Printf("Kind:       %s\n", record.InputKind)
	fmt.Printf("Created:    %s\n", record.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Email:      %s\n", record.UserEmail)
	if record.Context != "" {
		fmt.Printf("Context:    %s\n", record.Context)
	}
	if record.MLResult != nil {
		fmt.Printf("Verdict:    phishing=%t probability=%.2f model=%s\n",
			record.MLResult.IsPhishing, record.MLResult.PhishingProbability, record.MLResult.ModelVersion)
	}
	fmt.Println("Content:")
	fmt.Println(record.InputContent)
	return nil
}
