package ttadapter

import (
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

type UserModel struct {
	ID          string
	SessionID   string
	Role        string
	ConnectedAt int64
}

type PollModel struct {
	ID        uint64
	Question  string
	IsActive  bool
	CreatedAt int64
}

type OptionModel struct {
	PollID uint64
	ID     uint64
	Text   string
}

type VoteModel struct {
	ID       uint64
	PollID   uint64
	UserID   string
	OptionID uint64
	VotedAt  int64
}

type PresentationModel struct {
	ID            uint8
	CurrentPollID uint64
	Stage         string
}

const (
	userModelFields         = 4
	pollModelFields         = 4
	optionModelFields       = 3
	voteModelFields         = 5
	presentationModelFields = 3
)

func decodeLen(d *msgpack.Decoder, want int) error {
	l, err := d.DecodeArrayLen()
	if err != nil {
		return err
	}
	if l != want {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	return nil
}

func NewUserModel(u domain.User) *UserModel {
	return &UserModel{
		ID:          u.ID,
		SessionID:   u.SessionID,
		Role:        u.Role.String(),
		ConnectedAt: u.ConnectedAt,
	}
}

func (m *UserModel) ToUser() (domain.User, error) {
	role, ok := domain.ParseRole(m.Role)
	if !ok {
		return domain.User{}, fmt.Errorf("unknown role %q of user %s", m.Role, m.ID)
	}
	return domain.User{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Role:        role,
		ConnectedAt: m.ConnectedAt,
	}, nil
}

func (m *UserModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(userModelFields); err != nil {
		return err
	}
	if err := e.EncodeString(m.ID); err != nil {
		return err
	}
	if err := e.EncodeString(m.SessionID); err != nil {
		return err
	}
	if err := e.EncodeString(m.Role); err != nil {
		return err
	}
	return e.EncodeInt(m.ConnectedAt)
}

func (m *UserModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	if err = decodeLen(d, userModelFields); err != nil {
		return err
	}
	if m.ID, err = d.DecodeString(); err != nil {
		return err
	}
	if m.SessionID, err = d.DecodeString(); err != nil {
		return err
	}
	if m.Role, err = d.DecodeString(); err != nil {
		return err
	}
	if m.ConnectedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	return nil
}

func NewPollModel(p domain.Poll) *PollModel {
	return &PollModel{
		ID:        p.ID,
		Question:  p.Question,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

func (m *PollModel) ToPoll() domain.Poll {
	return domain.Poll{
		ID:        m.ID,
		Question:  m.Question,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

func (m *PollModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(pollModelFields); err != nil {
		return err
	}
	if err := e.EncodeUint(m.ID); err != nil {
		return err
	}
	if err := e.EncodeString(m.Question); err != nil {
		return err
	}
	if err := e.EncodeBool(m.IsActive); err != nil {
		return err
	}
	return e.EncodeInt(m.CreatedAt)
}

func (m *PollModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	if err = decodeLen(d, pollModelFields); err != nil {
		return err
	}
	if m.ID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.Question, err = d.DecodeString(); err != nil {
		return err
	}
	if m.IsActive, err = d.DecodeBool(); err != nil {
		return err
	}
	if m.CreatedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	return nil
}

func NewOptionModel(o domain.PollOption) *OptionModel {
	return &OptionModel{
		PollID: o.PollID,
		ID:     o.ID,
		Text:   o.Text,
	}
}

func (m *OptionModel) ToOption() domain.PollOption {
	return domain.PollOption{
		ID:     m.ID,
		PollID: m.PollID,
		Text:   m.Text,
	}
}

// EncodeMsgpack puts poll_id first so the space primary key is {poll_id, option_id}.
func (m *OptionModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(optionModelFields); err != nil {
		return err
	}
	if err := e.EncodeUint(m.PollID); err != nil {
		return err
	}
	if err := e.EncodeUint(m.ID); err != nil {
		return err
	}
	return e.EncodeString(m.Text)
}

func (m *OptionModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	if err = decodeLen(d, optionModelFields); err != nil {
		return err
	}
	if m.PollID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.ID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.Text, err = d.DecodeString(); err != nil {
		return err
	}
	return nil
}

func NewVoteModel(v domain.Vote) *VoteModel {
	return &VoteModel{
		ID:       v.ID,
		PollID:   v.PollID,
		UserID:   v.UserID,
		OptionID: v.OptionID,
		VotedAt:  v.VotedAt,
	}
}

func (m *VoteModel) ToVote() domain.Vote {
	return domain.Vote{
		ID:       m.ID,
		PollID:   m.PollID,
		UserID:   m.UserID,
		OptionID: m.OptionID,
		VotedAt:  m.VotedAt,
	}
}

func (m *VoteModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(voteModelFields); err != nil {
		return err
	}
	if err := e.EncodeUint(m.ID); err != nil {
		return err
	}
	if err := e.EncodeUint(m.PollID); err != nil {
		return err
	}
	if err := e.EncodeString(m.UserID); err != nil {
		return err
	}
	if err := e.EncodeUint(m.OptionID); err != nil {
		return err
	}
	return e.EncodeInt(m.VotedAt)
}

func (m *VoteModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	if err = decodeLen(d, voteModelFields); err != nil {
		return err
	}
	if m.ID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.PollID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.UserID, err = d.DecodeString(); err != nil {
		return err
	}
	if m.OptionID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.VotedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	return nil
}

func NewPresentationModel(s domain.PresentationState) *PresentationModel {
	return &PresentationModel{
		ID:            s.ID,
		CurrentPollID: s.CurrentPollID,
		Stage:         s.Stage.String(),
	}
}

func (m *PresentationModel) ToPresentation() (domain.PresentationState, error) {
	stage, ok := domain.ParseStage(m.Stage)
	if !ok {
		return domain.PresentationState{}, fmt.Errorf("unknown stage %q", m.Stage)
	}
	return domain.PresentationState{
		ID:            m.ID,
		CurrentPollID: m.CurrentPollID,
		Stage:         stage,
	}, nil
}

func (m *PresentationModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(presentationModelFields); err != nil {
		return err
	}
	if err := e.EncodeUint8(m.ID); err != nil {
		return err
	}
	if err := e.EncodeUint(m.CurrentPollID); err != nil {
		return err
	}
	return e.EncodeString(m.Stage)
}

func (m *PresentationModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	if err = decodeLen(d, presentationModelFields); err != nil {
		return err
	}
	if m.ID, err = d.DecodeUint8(); err != nil {
		return err
	}
	if m.CurrentPollID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if m.Stage, err = d.DecodeString(); err != nil {
		return err
	}
	return nil
}
