package notify

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	pubnub "github.com/pubnub/go/v7"
	"golang.org/x/crypto/blake2b"

	"tickethive/models"
)

// PublishFunc sends one message to a PubNub channel.
type PublishFunc func(channel string, message any) error

// PubNubPublisher publishes through a PubNub client.
func PubNubPublisher(pn *pubnub.PubNub) PublishFunc {
	return func(channel string, message any) error {
		_, st, err := pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return fmt.Errorf("pubnub publish %s: %w", channel, err)
		}
		if st.StatusCode >= 400 {
			return fmt.Errorf("pubnub publish %s: status %d", channel, st.StatusCode)
		}
		return nil
	}
}

// PubNub pushes realtime updates to the purchaser and the vendor.
type PubNub struct {
	publish PublishFunc
}

func NewPubNub(publish PublishFunc) *PubNub {
	return &PubNub{publish: publish}
}

func (p *PubNub) BookingPaid(_ context.Context, ev *models.BookingPaidEvent) error {
	msg := map[string]any{
		"type":       ev.Type,
		"booking_id": ev.BookingID,
		"ticket_id":  ev.TicketID,
		"title":      ev.Title,
		"quantity":   ev.Quantity,
		"amount":     ev.Amount.String(),
		"currency":   ev.Currency,
	}

	if err := p.publish(UserChannel(ev.UserEmail), msg); err != nil {
		return err
	}
	return p.publish(VendorChannel(ev.VendorEmail), msg)
}

// UserChannel is the private channel a purchaser's client subscribes to.
func UserChannel(email string) string {
	return "user-" + channelKey(email)
}

func VendorChannel(email string) string {
	return "vendor-" + channelKey(email)
}

// channelKey hashes the email so addresses never appear in channel names.
func channelKey(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:8])
}
