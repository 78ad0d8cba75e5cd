package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerChoice
	AnswerText
)

// Answer 学生作答值的标签联合：选择题为选项下标，简答题为文本。
// JSON 数字解析为 Choice，JSON 字符串解析为 Text，两者绝不互相转换——
// 字符串 "1" 不等于下标 1。
type Answer struct {
	Kind  AnswerKind
	Index int
	Text  string
}

func ChoiceAnswer(index int) Answer { return Answer{Kind: AnswerChoice, Index: index} }
func TextAnswer(text string) Answer { return Answer{Kind: AnswerText, Text: text} }

func (a Answer) IsZero() bool { return a.Kind == AnswerNone }

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerChoice:
		return json.Marshal(a.Index)
	case AnswerText:
		return json.Marshal(a.Text)
	default:
		return []byte(`""`), nil
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case json.Number:
		idx, err := v.Int64()
		if err != nil {
			return errors.New("answer: choice index must be an integer")
		}
		*a = ChoiceAnswer(int(idx))
		return nil
	case string:
		*a = TextAnswer(v)
		return nil
	case nil:
		*a = Answer{}
		return nil
	default:
		return errors.New("answer: value must be a number or a string")
	}
}

// AnswerSet 一次考试中题目ID到作答值的映射，仅存在于进行中的会话内
type AnswerSet map[string]Answer

// Clone 拷贝一份快照，提交时使用，避免阅卷过程中被并发修改
func (s AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
