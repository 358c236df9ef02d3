// Package tgui provides small UI helpers shared by the chat and web
// surfaces:
//   - a restricted, pre-escaped HTML type (H) valid in Telegram HTML mode
//   - inline keyboard and callback data helpers ("scope:action:payload")
//   - a message builder and an expiring token store for callback payloads
package tgui
