// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package assembler

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".FILL") {
		return DIRECTIVE_FILL
	} else if strings.EqualFold(ident, ".BLKW") {
		return DIRECTIVE_BLKW
	} else if strings.EqualFold(ident, ".STRINGZ") {
		return DIRECTIVE_STRINGZ
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) (machine.Opcode, bool) {
	if strings.EqualFold(ident, "ADD") {
		return machine.OP_ADD, true
	} else if strings.EqualFold(ident, "MUL") {
		return machine.OP_MUL, true
	} else if strings.EqualFold(ident, "IN") {
		return machine.OP_IN, true
	} else if strings.EqualFold(ident, "OUT") {
		return machine.OP_OUT, true
	} else if strings.EqualFold(ident, "JNZ") {
		return machine.OP_JNZ, true
	} else if strings.EqualFold(ident, "JZ") {
		return machine.OP_JZ, true
	} else if strings.EqualFold(ident, "LT") {
		return machine.OP_LT, true
	} else if strings.EqualFold(ident, "EQ") {
		return machine.OP_EQ, true
	} else if strings.EqualFold(ident, "ARB") {
		return machine.OP_ARB, true
	} else if strings.EqualFold(ident, "HLT") || strings.EqualFold(ident, "HALT") {
		return machine.OP_HALT, true
	}

	return 0, false
}

func parseLiteral(token *Token) (int64, error) {
	result, err := encoding.DecodeInt(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	return result, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, char := range s {
		if char == '_' || (char <= unicode.MaxASCII && unicode.IsLetter(char)) {
			continue
		}

		if i > 0 && unicode.IsDigit(char) {
			continue
		}

		return false
	}

	return true
}

// Parses the inside of a bracketed operand: [12], [label], [rb], [rb+3]
func parseAddress(token *Token) (machine.Param, string, error) {
	inner := strings.Join(strings.Fields(token.Value), "")

	if len(inner) >= 2 && strings.EqualFold(inner[:2], "rb") {
		offset := inner[2:]

		if offset == "" {
			return machine.Param{Mode: machine.MODE_RELATIVE}, "", nil
		}

		if offset[0] == '+' || offset[0] == '-' {
			value, err := strconv.ParseInt(offset, 10, 64)

			if err == nil {
				return machine.Param{Mode: machine.MODE_RELATIVE, Value: value}, "", nil
			}
		}

		if !isIdent(inner) {
			return machine.Param{}, "", &InvalidAddressError{token.Position}
		}
	}

	if isIdent(inner) {
		return machine.Param{Mode: machine.MODE_POSITION}, inner, nil
	}

	value, err := encoding.DecodeInt(inner)

	if err != nil {
		return machine.Param{}, "", &InvalidAddressError{token.Position}
	}

	return machine.Param{Mode: machine.MODE_POSITION, Value: value}, "", nil
}

// Resolves an operand token to a parameter. Label operands are returned by
// name and must be patched once every label is known.
func parseOperand(token *Token) (machine.Param, string, error) {
	switch token.Type {
	case TOKEN_LITERAL:
		value, err := parseLiteral(token)
		return machine.Param{Mode: machine.MODE_IMMEDIATE, Value: value}, "", err

	case TOKEN_IDENT:
		return machine.Param{Mode: machine.MODE_IMMEDIATE}, token.Value, nil

	case TOKEN_ADDRESS:
		return parseAddress(token)
	}

	return machine.Param{}, "", &InvalidOperandError{
		token.Position,
		[]TokenType{TOKEN_LITERAL, TOKEN_IDENT, TOKEN_ADDRESS},
		token.Type,
	}
}

func unescape(char rune) rune {
	switch char {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	}

	return char
}

// Splits a single source line into tokens. Operands are separated by commas
// or whitespace, and a ';' starts a comment.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenType TokenType = TOKEN_NONE
	var tokenStart int = 0
	var escaped bool = false

	flush := func() {
		if tokenType != TOKEN_NONE {
			tokens = append(tokens, Token{
				Type: tokenType,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   tokenStart + 1,
					Byte:     cursor.LineByte + int64(tokenStart),
					Size:     int64(builder.Len()),
					LineByte: cursor.LineByte,
				},
				Value: builder.String(),
			})
		}

		builder.Reset()
		tokenType = TOKEN_NONE
	}

	start := func(t TokenType, column int) {
		flush()
		tokenType = t
		tokenStart = column
	}

scan:
	for column, char := range line {
		position := cursor
		position.Column = column + 1
		position.Byte = cursor.LineByte + int64(column)
		position.Size = 1

		switch tokenType {
		case TOKEN_STRING:
			if char > unicode.MaxASCII {
				errs = append(errs, &OversizedCharacterError{position})
			}

			if escaped {
				builder.WriteRune(unescape(char))
				escaped = false
			} else if char == '\\' {
				escaped = true
			} else if char == '"' {
				flush()
			} else {
				builder.WriteRune(char)
			}

			continue

		case TOKEN_ADDRESS:
			if char == ']' {
				flush()
			} else {
				builder.WriteRune(char)
			}

			continue
		}

		switch {
		// Whitespace and operand separators
		case unicode.IsSpace(char) || char == ',':
			flush()

		// Comments
		case char == ';':
			flush()
			break scan

		// Address operand, i.e. [12], [rb-1]
		case char == '[':
			start(TOKEN_ADDRESS, column)

		// String literal
		case char == '"':
			start(TOKEN_STRING, column)

		// Assembler directives
		case char == '.':
			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			}

			start(TOKEN_DIRECTIVE, column)
			builder.WriteRune(char)

		// Label terminator
		case char == ':':
			if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			}

			flush()

		// Base 10 literal (i.e. #42, -1, 7)
		case char == '#' || char == '-' || char == '+':
			// Signed immediates (i.e. #-2)
			if tokenType == TOKEN_LITERAL && builder.String() == "#" && char != '#' {
				builder.WriteRune(char)
				break
			}

			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			}

			start(TOKEN_LITERAL, column)
			builder.WriteRune(char)

		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				start(TOKEN_LITERAL, column)
			}

			builder.WriteRune(char)

		// Identifier
		case char == '_' || unicode.IsLetter(char):
			if char > unicode.MaxASCII {
				errs = append(errs, &OversizedCharacterError{position})
			}

			if tokenType == TOKEN_NONE {
				start(TOKEN_IDENT, column)
			} else if tokenType == TOKEN_LITERAL {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			}

			builder.WriteRune(char)

		default:
			errs = append(errs, &UnexpectedCharacterError{position, char})
		}
	}

	switch tokenType {
	case TOKEN_STRING:
		errs = append(errs, &InvalidStringError{Cursor{
			Line:     cursor.Line,
			Column:   tokenStart + 1,
			Byte:     cursor.LineByte + int64(tokenStart),
			Size:     int64(len(line) - tokenStart),
			LineByte: cursor.LineByte,
		}})
	case TOKEN_ADDRESS:
		errs = append(errs, &InvalidAddressError{Cursor{
			Line:     cursor.Line,
			Column:   tokenStart + 1,
			Byte:     cursor.LineByte + int64(tokenStart),
			Size:     int64(len(line) - tokenStart),
			LineByte: cursor.LineByte,
		}})
	default:
		flush()
	}

	return tokens, errs
}

// Assemble translates Intcode assembly into program words. Every error found
// is reported; the returned program is only meaningful when errs is empty.
//
// Each line holds an optional label followed by an instruction or directive:
//
//	loop:  in   [rb+1]          ; read into base+1
//	       mul  [rb+1], #2, [x]
//	       out  [x]
//	       jnz  #1, loop
//	x      .fill 0
//
// #n and bare numbers are immediates, bare labels are the immediate address of
// the label, [n] and [label] are positions, and [rb], [rb+n], [rb-n] are
// relative to the base register.
func Assemble(input io.Reader, symtable *SymTable) (result []int64, errs []error) {
	type LabelRef struct {
		Label    string
		Addr     int64
		Position Cursor
	}

	var labels = make(map[string]int64)
	var labelRefs []LabelRef

	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1}

	result = make([]int64, 0)
	errs = make([]error, 0)

	next := func(line string) {
		cursor.Line++
		cursor.LineByte += int64(len(line) + 1)
		cursor.Byte = cursor.LineByte
	}

	for scanner.Scan() {
		line := scanner.Text()
		program := int64(len(result))

		tokens, lineErrs := tokenize(line, cursor)

		// Pass any potential assembler errors if we already had parser errors
		if len(lineErrs) > 0 {
			errs = append(errs, lineErrs...)
			next(line)
			continue
		}

		if len(tokens) == 0 {
			next(line)
			continue
		}

		// A leading identifier that is not a mnemonic declares a label
		if tokens[0].Type == TOKEN_IDENT {
			if _, ok := parseInstruction(tokens[0].Value); !ok {
				label := tokens[0]

				if _, exists := labels[label.Value]; exists {
					errs = append(
						errs, &RedeclaredLabelError{label.Position, label.Value},
					)
				} else {
					labels[label.Value] = program
				}

				tokens = tokens[1:]
			}
		}

		// No need to assemble label-only statements
		if len(tokens) == 0 {
			next(line)
			continue
		}

		keyword := tokens[0]
		operands := tokens[1:]

		if symtable != nil {
			symtable.Symbols[program] = cursor.LineByte
		}

		if op, ok := parseInstruction(keyword.Value); ok && keyword.Type == TOKEN_IDENT {
			if count := len(operands); count != op.Arity() {
				errs = append(
					errs,
					&InvalidNumArgumentsError{keyword.Position, op.Arity(), count},
				)

				next(line)
				continue
			}

			instr := machine.Instruction{Op: op}

			for i := range operands {
				param, label, err := parseOperand(&operands[i])

				if err != nil {
					errs = append(errs, err)
					continue
				}

				if i == op.Target() && param.Mode == machine.MODE_IMMEDIATE {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[i].Position,
							[]TokenType{TOKEN_ADDRESS},
							operands[i].Type,
						},
					)
					continue
				}

				if label != "" {
					labelRefs = append(
						labelRefs,
						LabelRef{label, program + 1 + int64(i), operands[i].Position},
					)
				}

				instr.Params[i] = param
			}

			result = append(result, machine.Encode(instr)...)
		} else if keyword.Type == TOKEN_DIRECTIVE {
			switch parseDirective(keyword.Value) {
			// .FILL # [, #...]
			case DIRECTIVE_FILL:
				if len(operands) == 0 {
					errs = append(
						errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
					)
					break
				}

				for i := range operands {
					switch operands[i].Type {
					case TOKEN_LITERAL:
						literal, err := parseLiteral(&operands[i])

						if err != nil {
							errs = append(errs, err)
						}

						result = append(result, literal)

					case TOKEN_IDENT:
						labelRefs = append(
							labelRefs,
							LabelRef{
								operands[i].Value,
								int64(len(result)),
								operands[i].Position,
							},
						)

						result = append(result, 0)

					default:
						errs = append(
							errs,
							&InvalidOperandError{
								operands[i].Position,
								[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
								operands[i].Type,
							},
						)
					}
				}

			// .BLKW #
			case DIRECTIVE_BLKW:
				if count := len(operands); count != 1 {
					errs = append(
						errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
					)
					break
				}

				if operands[0].Type != TOKEN_LITERAL {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[0].Position,
							[]TokenType{TOKEN_LITERAL},
							operands[0].Type,
						},
					)
					break
				}

				size, err := parseLiteral(&operands[0])

				if err != nil {
					errs = append(errs, err)
					break
				}

				if size < 0 || program+size > machine.DEFAULT_LIMIT {
					errs = append(
						errs,
						&OversizedLiteralError{
							operands[0].Position,
							machine.DEFAULT_LIMIT - program,
							size,
						},
					)
					break
				}

				result = append(result, make([]int64, size)...)

			// .STRINGZ "..."
			case DIRECTIVE_STRINGZ:
				if count := len(operands); count != 1 {
					errs = append(
						errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
					)
					break
				}

				if operands[0].Type != TOKEN_STRING {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[0].Position,
							[]TokenType{TOKEN_STRING},
							operands[0].Type,
						},
					)
					break
				}

				for _, char := range operands[0].Value {
					result = append(result, int64(char))
				}

				result = append(result, 0)

			default:
				errs = append(
					errs,
					&UnknownIdentifierError{keyword.Position, keyword.Value},
				)
			}
		} else {
			errs = append(
				errs,
				&UnknownIdentifierError{keyword.Position, keyword.Value},
			)
		}

		if int64(len(result)) > machine.DEFAULT_LIMIT {
			errs = append(errs, &OversizedBinaryError{})
			return
		}

		next(line)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
		return
	}

	// Label
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		result[ref.Addr] = addr
	}

	if symtable != nil {
		for label, addr := range labels {
			symtable.Labels[addr] = label
		}
	}

	return
}
