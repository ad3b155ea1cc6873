// ABOUTME: Network dispatch decision made once per new-message save
// ABOUTME: Routes a message to a hosted transit table or an outbound queue

package msgbase

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// originSuffix is what dispatch appends to the body of a message entering a
// hosted network: a separator line followed by the configured origin text,
// or "Sent from <bbsname>" when no origin_line is configured.
func (mb *MessageBase) originSuffix() string {
	origin := mb.cfg.Msg.OriginLine
	if origin == "" {
		origin = "Sent from " + mb.cfg.System.BBSName
	}
	return "\r\n---\r\n" + origin
}

// dispatch makes the routing decision for a newly saved message. The
// message's tags are scanned in insertion order and the first tag naming a
// configured network wins; exactly one routing action is taken per save,
// so a message cross-posted to two networks only travels to the first.
// Callers wanting fan-out tag and save once per network.
//
// No network_tags configuration means dispatch is disabled entirely.
func (mb *MessageBase) dispatch(ctx context.Context, m *Msg) error {
	networks := mb.cfg.Msg.NetworkTags
	if len(networks) == 0 {
		return nil
	}
	servers := mb.cfg.Msg.ServerTags

	for _, tag := range m.Tags {
		if containsTag(servers, tag) {
			return mb.dispatchHosted(ctx, m, tag)
		}
		if containsTag(networks, tag) {
			return mb.dispatchRemote(ctx, m, tag)
		}
	}
	return nil
}

// dispatchHosted handles a message for a network this node hosts: the
// origin line is appended, the message is re-saved, and the id is recorded
// in the network's transit table.
func (mb *MessageBase) dispatchHosted(ctx context.Context, m *Msg, tag string) error {
	netCfg, ok := mb.cfg.Network(tag)
	if !ok || netCfg.TransDBName == "" {
		mb.logger.Warn("hosted network has no transit table configured, skipping dispatch",
			"network", tag, "id", *m.ID)
		return nil
	}

	m.Body = m.Body + mb.originSuffix()
	if _, err := mb.SaveWith(ctx, m, SaveOptions{SuppressDispatch: true}); err != nil {
		return fmt.Errorf("re-saving message %d with origin line: %w", *m.ID, err)
	}

	trans, err := mb.store.Table(netCfg.TransDBName)
	if err != nil {
		return fmt.Errorf("opening transit table for network %q: %w", tag, err)
	}
	value, err := cbor.Marshal(*m.ID)
	if err != nil {
		return fmt.Errorf("encoding transit entry: %w", err)
	}
	if err := trans.Set(ctx, msgKey(*m.ID), value); err != nil {
		return fmt.Errorf("recording transit entry for network %q: %w", tag, err)
	}

	mb.logger.Info("added origin line, message in transit", "network", tag, "id", *m.ID)
	return nil
}

// dispatchRemote handles a message for a network this node forwards to:
// the id is queued in the network's outbound table for the transport layer
// to pick up. The body is left untouched.
func (mb *MessageBase) dispatchRemote(ctx context.Context, m *Msg, tag string) error {
	netCfg, ok := mb.cfg.Network(tag)
	if !ok || netCfg.QueueDBName == "" {
		mb.logger.Warn("network has no outbound queue configured, skipping dispatch",
			"network", tag, "id", *m.ID)
		return nil
	}

	queue, err := mb.store.Table(netCfg.QueueDBName)
	if err != nil {
		return fmt.Errorf("opening queue table for network %q: %w", tag, err)
	}
	value, err := cbor.Marshal(tag)
	if err != nil {
		return fmt.Errorf("encoding queue entry: %w", err)
	}
	if err := queue.Set(ctx, msgKey(*m.ID), value); err != nil {
		return fmt.Errorf("queueing message for network %q: %w", tag, err)
	}

	mb.logger.Info("message queued for network delivery", "network", tag, "id", *m.ID)
	return nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
