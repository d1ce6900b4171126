package events

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLanguage is the language default event messages are rendered in.
var BaseLanguage = language.AmericanEnglish

var supportedLanguages = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// Supported returns the languages the built-in catalog covers.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// MatchLanguage maps an arbitrary tag onto the closest supported language.
func MatchLanguage(tag language.Tag) language.Tag {
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return BaseLanguage
	}
	return supportedLanguages[index]
}

// ParseLanguage parses a BCP 47 value, falling back to BaseLanguage.
func ParseLanguage(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return BaseLanguage
	}
	tag, err := language.Parse(value)
	if err != nil {
		return BaseLanguage
	}
	return MatchLanguage(tag)
}

var messages = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		string(KindActionError):              "Action rejected: %[1]s",
		string(KindStatusBlock):              "%[1]s can't move because of %[2]s!",
		string(KindKnockoutBlock):            "%[1]s has fainted and must be switched out!",
		string(KindTurnSkipped):              "%[1]s ran out of time and skipped the turn.",
		string(KindSwitchSuccess):            "Go, %[1]s!",
		string(KindSwitchFailedSameUnit):     "%[1]s is already in battle!",
		string(KindSwitchFailedFaintedUnit):  "%[1]s has fainted and can't battle!",
		string(KindSwitchFailedInvalidIndex): "There is no coffeemon in slot %[1]d.",
		string(KindAttackHit):                "%[1]s used %[3]s on %[2]s and dealt %[4]d damage!",
		string(KindAttackCrit):               "Critical hit! %[1]s used %[3]s on %[2]s and dealt %[4]d damage!",
		string(KindAttackMiss):               "%[1]s used %[3]s but missed %[2]s!",
		string(KindAttackBlocked):            "%[1]s blocked part of the attack!",
		string(KindCoffeemonFainted):         "%[1]s fainted!",
		string(KindStatusApplied):            "%[1]s is now affected by %[2]s!",
		string(KindStatusDamage):             "%[1]s took %[3]d damage from %[2]s!",
		string(KindStatusHeal):               "%[1]s recovered %[3]d HP with %[2]s!",
		string(KindStatusRemoved):            "%[1]s is no longer affected by %[2]s.",
		string(KindItemUsed):                 "%[1]s was used on %[2]s!",
		string(KindSupportUsed):              "%[1]s used %[2]s!",
		string(KindTurnEnd):                  "Turn %[1]d is over.",
		string(KindBattleFinished):           "The battle is over! %[1]s wins!",

		"effect.burn":      "burn",
		"effect.poison":    "poison",
		"effect.sleep":     "sleep",
		"effect.freeze":    "freeze",
		"effect.attackUp":  "attack boost",
		"effect.defenseUp": "defense boost",
		"effect.lifesteal": "lifesteal",

		"reason." + ReasonUnknownMove:     "that move is not known by the active coffeemon",
		"reason." + ReasonMoveNotAttack:   "that move is not an attack",
		"reason." + ReasonMoveNotSupport:  "that move is not a support move",
		"reason." + ReasonUnknownItem:     "unknown item",
		"reason." + ReasonItemUnavailable: "no more of that item left",
		"reason." + ReasonInvalidTarget:   "the item can't be used on that coffeemon",
		"reason." + ReasonNoActiveUnit:    "no active coffeemon",
		"reason." + ReasonUnknownAction:   "unknown action",
		"reason." + ReasonNotYourTurn:     "it is not your turn",
	},
	language.BrazilianPortuguese: {
		string(KindActionError):              "Ação rejeitada: %[1]s",
		string(KindStatusBlock):              "%[1]s não pode agir por causa de %[2]s!",
		string(KindKnockoutBlock):            "%[1]s desmaiou e precisa ser trocado!",
		string(KindTurnSkipped):              "%[1]s ficou sem tempo e perdeu o turno.",
		string(KindSwitchSuccess):            "Vai, %[1]s!",
		string(KindSwitchFailedSameUnit):     "%[1]s já está em batalha!",
		string(KindSwitchFailedFaintedUnit):  "%[1]s desmaiou e não pode batalhar!",
		string(KindSwitchFailedInvalidIndex): "Não há coffeemon na posição %[1]d.",
		string(KindAttackHit):                "%[1]s usou %[3]s em %[2]s e causou %[4]d de dano!",
		string(KindAttackCrit):               "Acerto crítico! %[1]s usou %[3]s em %[2]s e causou %[4]d de dano!",
		string(KindAttackMiss):               "%[1]s usou %[3]s mas errou %[2]s!",
		string(KindAttackBlocked):            "%[1]s bloqueou parte do ataque!",
		string(KindCoffeemonFainted):         "%[1]s desmaiou!",
		string(KindStatusApplied):            "%[1]s agora sofre de %[2]s!",
		string(KindStatusDamage):             "%[1]s sofreu %[3]d de dano por %[2]s!",
		string(KindStatusHeal):               "%[1]s recuperou %[3]d de HP com %[2]s!",
		string(KindStatusRemoved):            "%[1]s não sofre mais de %[2]s.",
		string(KindItemUsed):                 "%[1]s foi usado em %[2]s!",
		string(KindSupportUsed):              "%[1]s usou %[2]s!",
		string(KindTurnEnd):                  "Fim do turno %[1]d.",
		string(KindBattleFinished):           "A batalha acabou! %[1]s venceu!",

		"effect.burn":      "queimadura",
		"effect.poison":    "veneno",
		"effect.sleep":     "sono",
		"effect.freeze":    "congelamento",
		"effect.attackUp":  "ataque aumentado",
		"effect.defenseUp": "defesa aumentada",
		"effect.lifesteal": "roubo de vida",

		"reason." + ReasonUnknownMove:     "o coffeemon ativo não conhece esse golpe",
		"reason." + ReasonMoveNotAttack:   "esse golpe não é um ataque",
		"reason." + ReasonMoveNotSupport:  "esse golpe não é de suporte",
		"reason." + ReasonUnknownItem:     "item desconhecido",
		"reason." + ReasonItemUnavailable: "esse item acabou",
		"reason." + ReasonInvalidTarget:   "o item não pode ser usado nesse coffeemon",
		"reason." + ReasonNoActiveUnit:    "nenhum coffeemon ativo",
		"reason." + ReasonUnknownAction:   "ação desconhecida",
		"reason." + ReasonNotYourTurn:     "não é a sua vez",
	},
}

var messageCatalog = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(BaseLanguage))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Formatter renders payloads into display text for one language.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a formatter for the closest supported language.
func NewFormatter(tag language.Tag) *Formatter {
	matched := MatchLanguage(tag)
	return &Formatter{
		tag:     matched,
		printer: message.NewPrinter(matched, message.Catalog(messageCatalog)),
	}
}

// Language reports the language the formatter renders in.
func (f *Formatter) Language() language.Tag {
	return f.tag
}

// Format renders one payload.
func (f *Formatter) Format(p Payload) string {
	pr := f.printer
	switch v := p.(type) {
	case ActionError:
		return pr.Sprintf(string(KindActionError), f.lookup("reason."+v.Reason, v.Reason))
	case StatusBlock:
		return pr.Sprintf(string(KindStatusBlock), v.UnitName, f.effect(v.Effect))
	case KnockoutBlock:
		return pr.Sprintf(string(KindKnockoutBlock), v.UnitName)
	case TurnSkipped:
		return pr.Sprintf(string(KindTurnSkipped), v.PlayerID)
	case SwitchSuccess:
		return pr.Sprintf(string(KindSwitchSuccess), v.UnitName)
	case SwitchFailedSameUnit:
		return pr.Sprintf(string(KindSwitchFailedSameUnit), v.UnitName)
	case SwitchFailedFaintedUnit:
		return pr.Sprintf(string(KindSwitchFailedFaintedUnit), v.UnitName)
	case SwitchFailedInvalidIndex:
		return pr.Sprintf(string(KindSwitchFailedInvalidIndex), v.Index)
	case AttackHit:
		return pr.Sprintf(string(KindAttackHit), v.AttackerName, v.TargetName, v.MoveName, v.Damage)
	case AttackCrit:
		return pr.Sprintf(string(KindAttackCrit), v.AttackerName, v.TargetName, v.MoveName, v.Damage)
	case AttackMiss:
		return pr.Sprintf(string(KindAttackMiss), v.AttackerName, v.TargetName, v.MoveName)
	case AttackBlocked:
		return pr.Sprintf(string(KindAttackBlocked), v.TargetName)
	case CoffeemonFainted:
		return pr.Sprintf(string(KindCoffeemonFainted), v.UnitName)
	case StatusApplied:
		return pr.Sprintf(string(KindStatusApplied), v.UnitName, f.effect(v.Effect))
	case StatusDamage:
		return pr.Sprintf(string(KindStatusDamage), v.UnitName, f.effect(v.Effect), v.Damage)
	case StatusHeal:
		return pr.Sprintf(string(KindStatusHeal), v.UnitName, f.effect(v.Effect), v.Amount)
	case StatusRemoved:
		return pr.Sprintf(string(KindStatusRemoved), v.UnitName, f.effect(v.Effect))
	case ItemUsed:
		return pr.Sprintf(string(KindItemUsed), v.ItemName, v.UnitName)
	case SupportUsed:
		return pr.Sprintf(string(KindSupportUsed), v.UnitName, v.MoveName)
	case TurnEnd:
		return pr.Sprintf(string(KindTurnEnd), v.Turn)
	case BattleFinished:
		return pr.Sprintf(string(KindBattleFinished), v.WinnerID)
	default:
		return ""
	}
}

func (f *Formatter) effect(effectType string) string {
	return f.lookup("effect."+effectType, effectType)
}

// lookup returns the catalog entry for key, or fallback when the catalog
// has none.
func (f *Formatter) lookup(key, fallback string) string {
	rendered := f.printer.Sprintf(key)
	if rendered == key {
		return fallback
	}
	return rendered
}

// Localize re-renders messages in the viewer's language. The input slice
// is not modified.
func Localize(list []Event, tag language.Tag) []Event {
	if len(list) == 0 {
		return list
	}
	f := NewFormatter(tag)
	out := make([]Event, len(list))
	for i, evt := range list {
		evt.Message = f.Format(evt.Payload)
		out[i] = evt
	}
	return out
}
