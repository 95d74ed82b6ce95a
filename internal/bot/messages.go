package bot

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/valory-xyz/triton-bot/internal/service"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// formatFloat renders an amount the short way, without trailing zeros.
func formatFloat(v *big.Float) string {
	if v == nil {
		return "0"
	}
	f, _ := v.Float64()
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func statusMessage(name string, st *types.StakingStatus) string {
	return fmt.Sprintf("[%s] %s OLAS [%d/%d]\nStaking program: %s\nNext epoch: %s",
		name,
		formatFloat(st.AccruedRewards),
		st.MechRequestsThisEpoch,
		st.RequiredMechRequests,
		st.Metadata.Name,
		st.EpochEnd.Format(timeLayout),
	)
}

// rewardsSummary builds the total-rewards line appended to the staking
// status report. usdValue is ignored when zero, matching a price lookup
// that failed.
func rewardsSummary(accrued, agentSafeOLAS, masterSafeOLAS, usdValue float64) string {
	combined := accrued + agentSafeOLAS + masterSafeOLAS
	msg := fmt.Sprintf("Total rewards = %s OLAS", strconv.FormatFloat(combined, 'g', -1, 64))

	var parts []string
	if accrued != 0 {
		parts = append(parts, strconv.FormatFloat(accrued, 'g', -1, 64)+" accrued")
	}
	if agentSafeOLAS != 0 {
		parts = append(parts, strconv.FormatFloat(agentSafeOLAS, 'g', -1, 64)+" in agent safes")
	}
	if masterSafeOLAS != 0 {
		parts = append(parts, strconv.FormatFloat(masterSafeOLAS, 'g', -1, 64)+" in master safes")
	}
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, " + ") + ")"
	}
	if usdValue != 0 {
		msg += fmt.Sprintf(" [$%s]", strconv.FormatFloat(usdValue, 'g', -1, 64))
	}
	return msg
}

func balanceMessage(svc *service.Service, snap *types.BalanceSnapshot) string {
	return fmt.Sprintf("\\[%s]\n%s = %s xDAI\n%s = %s xDAI  %s wxDAI  %s OLAS\n%s = %s xDAI\n%s = %s xDAI  %s OLAS",
		EscapeMarkdownV2(svc.Name()),
		AddressLink("Agent EOA", svc.AgentEOA()), formatFloat(snap.AgentEOANative),
		AddressLink("Service Safe", svc.ServiceSafe()),
		formatFloat(snap.ServiceSafeNative), formatFloat(snap.ServiceSafeWrappedNative), formatFloat(snap.ServiceSafeOLAS),
		AddressLink("Master EOA", svc.MasterEOA()), formatFloat(snap.MasterEOANative),
		AddressLink("Master Safe", svc.MasterSafe()),
		formatFloat(snap.MasterSafeNative), formatFloat(snap.MasterSafeOLAS),
	)
}

func claimMessage(name string, amount *big.Float) string {
	return fmt.Sprintf("[%s] Claimed %s OLAS rewards into the Master safe.", name, formatFloat(amount))
}

// withdrawalMessage reports one successful transfer. The autoclaim flag
// marks messages emitted by the scheduled job rather than the command.
func withdrawalMessage(svc *service.Service, w types.Withdrawal, autoclaim bool) string {
	prefix := ""
	if autoclaim {
		prefix = "(Autoclaim) "
	}
	to := svc.WithdrawalAddress()
	return fmt.Sprintf("\\[%s] %sSent the %s. %s OLAS sent from the %s to %s #withdraw",
		EscapeMarkdownV2(svc.Name()),
		prefix,
		TxLink("withdrawal transaction", w.TxHash),
		formatFloat(w.Amount),
		w.Source,
		AddressLink(to.Hex(), to),
	)
}

func cannotWithdrawMessage(name string, autoclaim bool) string {
	prefix := ""
	if autoclaim {
		prefix = "(Autoclaim) "
	}
	return fmt.Sprintf("\\[%s] %sCannot withdraw rewards", EscapeMarkdownV2(name), prefix)
}

func slotsMessage(reports []types.SlotReport) string {
	if len(reports) == 0 {
		return "No staking programs configured"
	}
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf("[%s] %d available slots", r.Program, r.AvailableSlots))
	}
	return strings.Join(lines, "\n")
}

func jobsMessage(entries []JobStatus, loc *time.Location) string {
	if len(entries) == 0 {
		return "No scheduled jobs"
	}
	var b strings.Builder
	for _, e := range entries {
		next := "N/A"
		if !e.Next.IsZero() {
			next = e.Next.In(loc).Format(timeLayout)
		}
		fmt.Fprintf(&b, "- %s: %s\n", e.Name, next)
	}
	return b.String()
}

func lowBalanceAgentMessage(svc *service.Service, snap *types.BalanceSnapshot) string {
	return fmt.Sprintf("[%s] %s balance is %s xDAI",
		EscapeMarkdownV2(svc.Name()),
		AddressLink("Agent EOA", svc.AgentEOA()),
		formatFloat(snap.AgentEOANative))
}

func lowBalanceSafeMessage(svc *service.Service, snap *types.BalanceSnapshot) string {
	return fmt.Sprintf("[%s] %s balance is %s xDAI  %s wxDAI",
		EscapeMarkdownV2(svc.Name()),
		AddressLink("Service Safe", svc.ServiceSafe()),
		formatFloat(snap.ServiceSafeNative),
		formatFloat(snap.ServiceSafeWrappedNative))
}

func lowBalanceMasterSafeMessage(svc *service.Service, snap *types.BalanceSnapshot) string {
	return fmt.Sprintf("[%s] %s balance is %s xDAI",
		EscapeMarkdownV2(svc.Name()),
		AddressLink("Master Safe", svc.MasterSafe()),
		formatFloat(snap.MasterSafeNative))
}
