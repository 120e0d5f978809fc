package email

const (
	subjectLeadOffered      = "Novo lead aguardando atendimento"
	subjectLeadClaimed      = "Lead atribuído a você"
	subjectRoutingExhausted = "Lead sem corretor disponível"
)
