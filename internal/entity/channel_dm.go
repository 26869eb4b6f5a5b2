package entity

import (
	"Concord/internal/shared/snowflake"
)

type DMChannel struct {
	baseChannel
	textState
	recipientID snowflake.ID
}

func newDMChannel(c Client, data Payload) *DMChannel {
	ch := &DMChannel{}
	ch.init(c, data)
	ch.initText(c, ch.id, 0)
	ch.patch(data)
	return ch
}

func (c *DMChannel) patch(data Payload) {
	c.patchBase(data)
	c.patchText(data)
	if recipients, ok := data.Objects("recipients"); ok && len(recipients) > 0 {
		if u, err := c.client.Users().Add(recipients[0], true); err == nil {
			c.recipientID = u.id
		}
	}
}

func (c *DMChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *DMChannel) RecipientID() snowflake.ID { return c.recipientID }

// Recipient 解析私聊对象，未缓存时返回 nil。
func (c *DMChannel) Recipient() *User {
	return c.client.Users().Get(c.recipientID)
}

type GroupDMChannel struct {
	baseChannel
	textState
	name          *string
	icon          *string
	ownerID       snowflake.ID
	applicationID snowflake.ID
	recipientIDs  []snowflake.ID
}

func newGroupDMChannel(c Client, data Payload) *GroupDMChannel {
	ch := &GroupDMChannel{}
	ch.init(c, data)
	ch.initText(c, ch.id, 0)
	ch.patch(data)
	return ch
}

func (c *GroupDMChannel) patch(data Payload) {
	c.patchBase(data)
	c.patchText(data)
	if v, ok := data.StringPtr("name"); ok {
		c.name = v
	}
	if v, ok := data.StringPtr("icon"); ok {
		c.icon = v
	}
	if v, ok := data.ID("owner_id"); ok {
		c.ownerID = v
	}
	if v, ok := data.ID("application_id"); ok {
		c.applicationID = v
	}
	if recipients, ok := data.Objects("recipients"); ok {
		ids := make([]snowflake.ID, 0, len(recipients))
		for _, r := range recipients {
			if u, err := c.client.Users().Add(r, true); err == nil {
				ids = append(ids, u.id)
			}
		}
		c.recipientIDs = ids
	}
}

func (c *GroupDMChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *GroupDMChannel) Name() *string         { return c.name }
func (c *GroupDMChannel) Icon() *string         { return c.icon }
func (c *GroupDMChannel) OwnerID() snowflake.ID { return c.ownerID }

func (c *GroupDMChannel) RecipientIDs() []snowflake.ID {
	out := make([]snowflake.ID, len(c.recipientIDs))
	copy(out, c.recipientIDs)
	return out
}

// Recipients 只返回已缓存的用户。
func (c *GroupDMChannel) Recipients() []*User {
	out := make([]*User, 0, len(c.recipientIDs))
	for _, id := range c.recipientIDs {
		if u := c.client.Users().Get(id); u != nil {
			out = append(out, u)
		}
	}
	return out
}
